package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tagboard/internal/app"
	"tagboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tagboard",
	Short: "Tagboard annotation server",
	Long: `Tagboard serves batches of items to human coders, collects answers
against a question schema, and appends them to a CSV output log. The log is
also the progress record: an item a coder has a row for is not served to that
coder again.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TAGBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(assignmentsCmd())
}

func buildApp() (*app.Context, error) {
	return app.Build(viper.GetString("config"), log.Default())
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the annotation web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := buildApp()
			if err != nil {
				return err
			}
			secret := viper.GetString("session-secret")
			if secret == "" {
				secret = uuid.NewString()
				appCtx.Logger.Printf("TAGBOARD_SESSION_SECRET not set; using a generated secret, sessions will not survive restarts")
			}
			handler, err := server.New(server.Config{
				App:     appCtx,
				Session: server.SessionConfig{Secret: secret, Logger: appCtx.Logger},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving %s on http://%s (coder mode: %s)\n", appCtx.Config.ProjectName, addr, appCtx.Config.CoderMode)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().String("session-secret", "", "session signing secret (env TAGBOARD_SESSION_SECRET)")
	_ = viper.BindPFlag("session-secret", cmd.Flags().Lookup("session-secret"))
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config, catalog, schema, and assignment sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := buildApp()
			if err != nil {
				return err
			}
			summary := map[string]any{
				"project":       appCtx.Config.ProjectName,
				"media_type":    appCtx.Config.MediaType,
				"coder_mode":    appCtx.Config.CoderMode,
				"items":         len(appCtx.Engine.Items),
				"questions":     len(appCtx.Engine.Questions),
				"assigned":      len(appCtx.Engine.Assignments),
				"roster_coders": len(appCtx.Roster),
			}
			if viper.GetBool("json") {
				return printJSON(summary)
			}
			fmt.Printf("config ok: %d items, %d questions, %d coders with assignments\n",
				len(appCtx.Engine.Items), len(appCtx.Engine.Questions), len(appCtx.Engine.Assignments))
			return nil
		},
	}
}

func progressCmd() *cobra.Command {
	var coder string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Per-coder completion derived from the output log",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := buildApp()
			if err != nil {
				return err
			}
			coders := map[string]struct{}{}
			if coder != "" {
				coders[coder] = struct{}{}
			} else {
				rows, err := appCtx.Engine.Store.Rows()
				if err != nil {
					return err
				}
				for _, row := range rows {
					if id := row["coder_id"]; id != "" {
						coders[id] = struct{}{}
					}
				}
				for id := range appCtx.Engine.Assignments {
					coders[id] = struct{}{}
				}
			}
			ids := make([]string, 0, len(coders))
			for id := range coders {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if viper.GetBool("json") {
				out := make([]any, 0, len(ids))
				for _, id := range ids {
					out = append(out, appCtx.Engine.CoderProgress(id))
				}
				return printJSON(out)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Coder", "Assigned", "Completed", "Remaining"})
			for _, id := range ids {
				p := appCtx.Engine.CoderProgress(id)
				tw.AppendRow(table.Row{p.CoderID, p.Assigned, p.Completed, p.Remaining})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&coder, "coder", "", "limit to one coder id")
	return cmd
}

func assignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignments",
		Short: "Show the resolved coder assignment map",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := buildApp()
			if err != nil {
				return err
			}
			type entry struct {
				CoderID string   `json:"coder_id"`
				ItemIDs []string `json:"item_ids"`
			}
			entries := make([]entry, 0, len(appCtx.Engine.Assignments))
			for coderID, ids := range appCtx.Engine.Assignments {
				list := make([]string, 0, len(ids))
				for id := range ids {
					list = append(list, id)
				}
				sort.Strings(list)
				entries = append(entries, entry{CoderID: coderID, ItemIDs: list})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].CoderID < entries[j].CoderID })

			if viper.GetBool("json") {
				return printJSON(entries)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Coder", "Items"})
			for _, e := range entries {
				tw.AppendRow(table.Row{e.CoderID, strings.Join(e.ItemIDs, ", ")})
			}
			tw.Render()
			return nil
		},
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
