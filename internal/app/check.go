package app

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/proofscan/internal/adapters/driven/ai"
	"github.com/custodia-labs/proofscan/internal/connectors/google"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// pingTimeout bounds each remote probe made by Check.
const pingTimeout = 15 * time.Second

// CheckStatus is the outcome of one setup check.
type CheckStatus string

// Check statuses.
const (
	CheckPass CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
	CheckSkip CheckStatus = "skip"
)

// CheckResult reports one setup check.
type CheckResult struct {
	Name   string
	Status CheckStatus
	Detail string
}

// Failed reports whether any result failed.
func Failed(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == CheckFail {
			return true
		}
	}
	return false
}

// Check verifies the local setup: configuration, credential and token
// files, the pattern table, the prompt template and the database. With
// ping it also contacts Drive, the sink and the language model.
func (a *App) Check(ctx context.Context, ping bool) []CheckResult {
	var results []CheckResult
	add := func(name string, status CheckStatus, format string, args ...any) {
		results = append(results, CheckResult{Name: name, Status: status, Detail: fmt.Sprintf(format, args...)})
	}

	cfg := a.cfg
	if err := cfg.ValidateRun(cfg.Drive.FolderID, cfg.Sink.Destination); err != nil {
		add("config", CheckFail, "%v", err)
	} else {
		source := cfg.File
		if source == "" {
			source = "environment"
		}
		add("config", CheckPass, "loaded from %s", source)
	}

	creds, err := a.Credentials()
	switch {
	case err != nil:
		add("credentials", CheckFail, "%v", err)
	case creds.Kind == google.CredentialsServiceAccount:
		add("credentials", CheckPass, "service account key %s", cfg.Drive.CredentialsFile)
		add("token", CheckSkip, "not needed for service accounts")
	default:
		add("credentials", CheckPass, "OAuth client %s", cfg.Drive.CredentialsFile)
		if _, err := a.TokenStore().Load(); err != nil {
			add("token", CheckFail, "%v", err)
		} else {
			add("token", CheckPass, "%s", cfg.Drive.TokenFile)
		}
	}

	if a.patterns.Exists() {
		add("patterns", CheckPass, "%d patterns, overrides from %s", len(a.metadata.Patterns()), a.patterns.Location())
	} else {
		add("patterns", CheckPass, "%d built-in patterns", len(a.metadata.Patterns()))
	}

	if !cfg.EnrichmentEnabled() {
		add("prompt", CheckSkip, "enrichment disabled")
	} else if _, err := a.prompts.Load(driven.PromptCouponExtraction); err != nil {
		add("prompt", CheckWarn, "%v (built-in prompt used)", err)
	} else {
		add("prompt", CheckPass, "%s", a.prompts.Path(driven.PromptCouponExtraction))
	}

	if store, err := a.Store(); err != nil {
		add("database", CheckFail, "%v", err)
	} else {
		add("database", CheckPass, "%s", store.Path())
	}

	if !ping {
		return results
	}

	results = append(results, a.pingDrive(ctx), a.pingSink(ctx), a.pingLLM(ctx))
	return results
}

func (a *App) pingDrive(ctx context.Context) CheckResult {
	res := CheckResult{Name: "drive"}
	if a.cfg.Drive.FolderID == "" {
		res.Status, res.Detail = CheckSkip, "no folder configured"
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	client, err := a.DriveClient(ctx)
	if err != nil {
		res.Status, res.Detail = CheckFail, err.Error()
		return res
	}
	name, err := client.FolderName(ctx, a.cfg.Drive.FolderID)
	if err != nil {
		res.Status, res.Detail = CheckFail, err.Error()
		return res
	}
	res.Status, res.Detail = CheckPass, fmt.Sprintf("folder %q reachable", name)
	return res
}

func (a *App) pingSink(ctx context.Context) CheckResult {
	res := CheckResult{Name: "sink"}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	s, err := a.sinks.Open(ctx, a.cfg.Sink.Destination)
	if err != nil {
		res.Status, res.Detail = CheckFail, err.Error()
		return res
	}
	defer s.Close()

	if p, ok := s.(driven.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			res.Status, res.Detail = CheckFail, err.Error()
			return res
		}
	}
	res.Status, res.Detail = CheckPass, s.Destination()
	return res
}

func (a *App) pingLLM(ctx context.Context) CheckResult {
	res := CheckResult{Name: "llm"}
	if !a.cfg.EnrichmentEnabled() {
		res.Status, res.Detail = CheckSkip, "enrichment disabled"
		return res
	}

	svc, err := ai.CreateLLMService(ctx, a.cfg.LLM)
	if err != nil {
		res.Status, res.Detail = CheckFail, err.Error()
		return res
	}
	if svc == nil {
		res.Status, res.Detail = CheckSkip, "enrichment disabled"
		return res
	}
	defer svc.Close()

	if err := ai.Ping(ctx, svc); err != nil {
		res.Status, res.Detail = CheckFail, err.Error()
		return res
	}
	res.Status, res.Detail = CheckPass, fmt.Sprintf("%s (%s)", svc.ModelName(), a.cfg.LLM.Provider)
	return res
}
