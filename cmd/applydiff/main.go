package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kvit-s/applydiff/internal/approve"
	"github.com/kvit-s/applydiff/internal/config"
	"github.com/kvit-s/applydiff/internal/logging"
	"github.com/kvit-s/applydiff/internal/patch"
	"github.com/kvit-s/applydiff/internal/storage"
	"github.com/kvit-s/applydiff/internal/tools"
	"github.com/kvit-s/applydiff/internal/workspace"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
)

func main() {
	configPath := pflag.String("config", "config.yaml", "path to config file")
	filePath := pflag.StringP("file", "f", "", "path to the file to modify")
	sectionsPath := pflag.String("sections", "", "path to a JSON file with diff sections, or - for stdin")
	description := pflag.StringP("description", "d", "", "summary shown in the approval preview")
	partial := pflag.Bool("partial", false, "apply non-conflicting sections even if others fail")
	create := pflag.Bool("create", false, "create the file when it does not exist")
	autoYes := pflag.BoolP("yes", "y", false, "skip the approval prompt and apply")
	serve := pflag.Bool("serve", false, "read JSON requests on stdin, write JSON responses to stdout")
	logFile := pflag.String("log", "", "log file path (overrides config, empty uses config)")
	showVersion := pflag.Bool("version", false, "show version information and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("applydiff %s-%s\n", version, commitHash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *logFile != "" {
		cfg.Log.Path = *logFile
	}

	logger, err := logging.New(cfg.Log.Path, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *serve {
		if err := runServe(ctx, cfg, *configPath, *autoYes, logger); err != nil {
			log.Fatalf("Serve mode failed: %v", err)
		}
		return
	}

	if *filePath == "" || *sectionsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: applydiff --file F --sections S.json [options]")
		fmt.Fprintln(os.Stderr, "       applydiff --serve [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Options:")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	sections, err := readSections(*sectionsPath)
	if err != nil {
		log.Fatalf("Failed to read sections: %v", err)
	}

	// One lock per target file keeps concurrent invocations from interleaving
	// their read-modify-write cycles.
	fileLock, err := workspace.AcquireFileLock(*filePath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer fileLock.Release()

	tool := buildTool(cfg, *autoYes, logger)
	args, _ := json.Marshal(map[string]any{
		"path":            *filePath,
		"sections":        sections,
		"description":     *description,
		"partial_success": *partial,
		"create":          *create,
	})

	result, err := tool.Call(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stdout, tools.FormatError(err))
		os.Exit(1)
	}
	printJSON(os.Stdout, result)
}

// buildTool assembles the full pipeline: matcher from config tunables,
// OS storage, the configured approver, and the orchestrator behind the
// JSON-argument tool facade.
func buildTool(cfg *config.Config, autoYes bool, logger *zap.Logger) *tools.ApplyDiffTool {
	validator := patch.NewValidator(cfg.NewMatcher())
	orchestrator := patch.NewOrchestrator(
		storage.NewOSStorage(),
		buildApprover(cfg, autoYes),
		validator,
		logger,
	)
	return tools.NewApplyDiffTool(orchestrator)
}

func buildApprover(cfg *config.Config, autoYes bool) patch.Approver {
	if autoYes {
		return approve.NewAuto(true)
	}
	style := approve.DiffStyle(cfg.Approval.DiffStyle)
	switch cfg.Approval.Mode {
	case "auto":
		return approve.NewAuto(cfg.Approval.AutoApprove)
	case "tui":
		return approve.NewTUI(style)
	default:
		timeout := time.Duration(cfg.Approval.TimeoutSeconds) * time.Second
		return approve.NewConsole(style, timeout)
	}
}

// readSections loads the raw section records. The loose shape is kept so the
// tool's alias-tolerant normalizer handles field naming.
func readSections(path string) ([]map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var sections []map[string]any
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}
	return sections, nil
}

// serveRequest is one line of the stdio protocol: a tool name, its arguments,
// and an optional id echoed back in the response.
type serveRequest struct {
	ID   string          `json:"id,omitempty"`
	Tool string          `json:"tool,omitempty"`
	Args json.RawMessage `json:"args"`
}

type serveResponse struct {
	ID     string         `json:"id,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  map[string]any `json:"error,omitempty"`
}

// runServe reads newline-delimited JSON requests from stdin and answers each
// on stdout. Config changes are picked up between requests via the reloader;
// approval always goes through the auto policy here because stdin carries the
// protocol, not a human.
func runServe(ctx context.Context, cfg *config.Config, configPath string, autoYes bool, logger *zap.Logger) error {
	var reloader *config.Reloader
	if _, err := os.Stat(configPath); err == nil {
		reloader, err = config.NewReloader(cfg, configPath, logger)
		if err != nil {
			return err
		}
		reloader.Start()
		defer reloader.Stop()
	}

	current := func() *config.Config {
		if reloader != nil {
			return reloader.Current()
		}
		return cfg
	}

	startup := tools.NewRegistry()
	startup.Register(buildServeTool(cfg, autoYes, logger))
	logger.Info("serve mode started",
		zap.String("config", configPath),
		zap.Strings("tools", startup.ListTools()))

	out := bufio.NewWriter(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req serveRequest
		if err := json.Unmarshal(line, &req); err != nil {
			writeResponse(out, serveResponse{
				Error: tools.SemanticErrorf("invalid request: %v", err).ToJSON(),
			})
			continue
		}

		// The registry is rebuilt per request so a config reload takes
		// effect on the next line read, not on restart.
		registry := tools.NewRegistry()
		registry.Register(buildServeTool(current(), autoYes, logger))

		name := req.Tool
		if name == "" {
			name = "ApplyDiff"
		}
		var result any
		tool, err := registry.Get(name)
		if err == nil {
			result, err = tool.Call(ctx, req.Args)
		}

		resp := serveResponse{ID: req.ID}
		if err != nil {
			resp.Error = errorJSON(err)
		} else {
			resp.Result = result
		}
		writeResponse(out, resp)
	}
	return scanner.Err()
}

// buildServeTool is buildTool with interactive approvers replaced: a protocol
// peer cannot answer a terminal prompt, so only the auto policy applies, and
// a request is rejected unless --yes or approval.auto_approve says otherwise.
func buildServeTool(cfg *config.Config, autoYes bool, logger *zap.Logger) *tools.ApplyDiffTool {
	decision := autoYes || cfg.Approval.AutoApprove
	validator := patch.NewValidator(cfg.NewMatcher())
	orchestrator := patch.NewOrchestrator(
		storage.NewOSStorage(),
		approve.NewAuto(decision),
		validator,
		logger,
	)
	return tools.NewApplyDiffTool(orchestrator)
}

func errorJSON(err error) map[string]any {
	if te, ok := err.(*tools.ToolError); ok {
		return te.ToJSON()
	}
	return map[string]any{"success": false, "error": err.Error()}
}

func writeResponse(out *bufio.Writer, resp serveResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":{"type":"runtime","message":"marshal response"}}`)
	}
	out.Write(data)
	out.WriteByte('\n')
	out.Flush()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
	}
}
