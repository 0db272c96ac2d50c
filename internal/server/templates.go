package server

import "html/template"

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "login"}}<!DOCTYPE html>
<html><body style="font-family:Arial;max-width:600px;margin:40px auto">
<h2>{{.ProjectName}}</h2>
<form method="POST">
  <label>Coder ID: <input name="coder_id" required></label>
  <button type="submit">Continue</button>
</form>
</body></html>
{{end}}

{{define "pseudonym_info"}}<!DOCTYPE html>
<html><body style="font-family:Arial;max-width:700px;margin:40px auto">
<h2>{{.ProjectName}}</h2>
<p>This project uses pseudonym URLs for coders.</p>
<p>Ask your coordinator for your link, e.g. <code>http://localhost:8080/&lt;your_coder_id&gt;</code>.</p>
</body></html>
{{end}}

{{define "done"}}<!DOCTYPE html>
<html><body style="font-family:Arial;max-width:700px;margin:40px auto">
<h2>{{.ProjectName}}</h2>
<p>No more items available for coder <b>{{.CoderID}}</b>.</p>
<p>If this seems wrong, check your assignments or clear the output log for re-annotation.</p>
</body></html>
{{end}}

{{define "annotate"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Batch.ProjectName}}</title></head>
<body style="font-family:Arial;max-width:900px;margin:40px auto">
{{.HeaderHTML}}
<h2>{{.Batch.ProjectName}}</h2>
<p>Coder: <b>{{.Batch.CoderID}}</b></p>
{{.DescHTML}}
<div id="items"></div>
<div id="page-questions"></div>
<p><label>Comments:<br><textarea id="comments" rows="3" cols="60"></textarea></label></p>
<button id="submit-btn">Submit</button>
{{if .Batch.AllowSkip}}<button id="skip-btn">Skip</button>{{end}}
<script>
const batch = {{.BatchJSON}};

function questionField(q, name) {
  const wrap = document.createElement("p");
  const label = document.createElement("label");
  label.textContent = (q.label || q.id) + " ";
  const input = document.createElement("input");
  input.name = name;
  input.dataset.qid = q.id;
  label.appendChild(input);
  wrap.appendChild(label);
  return wrap;
}

const itemsDiv = document.getElementById("items");
batch.items.forEach((item, idx) => {
  const box = document.createElement("div");
  box.style.border = "1px solid #ccc";
  box.style.padding = "8px";
  box.style.margin = "8px 0";
  if (batch.media_type === "image") {
    const img = document.createElement("img");
    img.src = item.source;
    img.style.maxWidth = "100%";
    box.appendChild(img);
  } else if (batch.media_type === "text") {
    const pre = document.createElement("pre");
    pre.style.whiteSpace = "pre-wrap";
    pre.textContent = item.display_text || item.source;
    box.appendChild(pre);
  } else {
    const media = document.createElement(batch.media_type === "audio" ? "audio" : "video");
    media.src = item.source;
    media.controls = true;
    box.appendChild(media);
  }
  if (item.description) {
    const p = document.createElement("p");
    p.textContent = item.description;
    box.appendChild(p);
  }
  batch.questions.filter(q => q.applies_to === "item").forEach(q => {
    box.appendChild(questionField(q, "item_" + idx + "_" + q.id));
  });
  itemsDiv.appendChild(box);
});

const pageDiv = document.getElementById("page-questions");
batch.questions.filter(q => q.applies_to === "page").forEach(q => {
  pageDiv.appendChild(questionField(q, "page_" + q.id));
});

document.getElementById("submit-btn").addEventListener("click", async () => {
  const items = batch.items.map((item, idx) => {
    const answers = {};
    document.querySelectorAll("input[name^='item_" + idx + "_']").forEach(inp => {
      answers[inp.dataset.qid] = inp.value;
    });
    return { item_row: item, answers: answers };
  });
  const pageAnswers = {};
  pageDiv.querySelectorAll("input").forEach(inp => {
    pageAnswers[inp.dataset.qid] = inp.value;
  });
  const res = await fetch("/submit", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({
      items: items,
      page_answers: pageAnswers,
      comments: document.getElementById("comments").value
    })
  });
  if (res.ok) { location.href = "/annotate"; }
  else { alert("Submit failed: " + res.status); }
});

const skip = document.getElementById("skip-btn");
if (skip) { skip.addEventListener("click", () => location.href = "/annotate"); }
</script>
</body></html>
{{end}}
`))

type loginPage struct {
	ProjectName string
}

type donePage struct {
	ProjectName string
	CoderID     string
}

type annotatePage struct {
	Batch      batchView
	HeaderHTML template.HTML
	DescHTML   template.HTML
	BatchJSON  template.JS
}

// batchView is the subset of the batch the template reads directly; the full
// contract travels as embedded JSON.
type batchView struct {
	ProjectName string
	CoderID     string
	AllowSkip   bool
}
