package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"seller-onboarding/internal/audit"
	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/config"
	"seller-onboarding/internal/common/database"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/marketplace"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/onboarding"
)

// session is one CLI invocation: config, wired engine and the loaded wizard.
type session struct {
	cfg     *config.Config
	deps    onboarding.Deps
	ctrl    *onboarding.Controller
	history *audit.PostgresRecorder
	userID  string
	format  string
	out     io.Writer
	closers []func() error
}

func openSession(cmd *cobra.Command) (*session, error) {
	path, _ := cmd.Flags().GetString("config")
	userID, _ := cmd.Flags().GetString("user")
	format, _ := cmd.Flags().GetString("output")
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, userID: userID, format: format, out: cmd.OutOrStdout()}
	log := logger.NewStructured("warn", "console")

	var stateCache cache.Cache = cache.NewMemory()
	if cfg.Database.Redis.Address != "" {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rc.Close)
		stateCache = cache.NewRedisCache(rc, config.GetDuration(cfg.Onboarding.CacheTTL))
	}

	var recorder audit.Recorder = audit.Noop{}
	if cfg.Onboarding.AuditEnabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
		s.history = audit.NewPostgresRecorder(pg)
		recorder = s.history
	}

	s.deps = onboarding.Deps{
		Store:       marketplace.New(cfg.Marketplace, log).EntityStore(),
		Cache:       stateCache,
		Audit:       recorder,
		Logger:      log,
		DurableSkip: cfg.Onboarding.DurableSkip,
	}
	s.ctrl = onboarding.NewController(s.deps)
	return s, nil
}

func (s *session) close() {
	if s.ctrl != nil {
		s.ctrl.Dispose()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// dispatch loads the wizard and then applies action to it.
func (s *session) dispatch(ctx context.Context, action onboarding.Action) error {
	if _, err := s.ctrl.LoadForUser(ctx, s.userID); err != nil {
		return err
	}
	st, err := s.ctrl.Dispatch(ctx, action)
	if err != nil {
		return err
	}
	return s.printState(st)
}

func runResume(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	st, err := s.ctrl.LoadForUser(cmd.Context(), s.userID)
	if err != nil {
		return err
	}
	return s.printState(st)
}

func runComplete(cmd *cobra.Command, args []string) error {
	step, err := parseStep(args[0])
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")

	var raw []byte
	if step != onboarding.StepReview {
		if file == "" {
			return fmt.Errorf("--file is required to complete step %d", step)
		}
		if raw, err = readPayload(file, cmd.InOrStdin()); err != nil {
			return err
		}
	}
	action, err := decodeAction(step, raw)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return s.dispatch(cmd.Context(), action)
}

func runSkip(cmd *cobra.Command, args []string) error {
	step, err := parseStep(args[0])
	if err != nil {
		return err
	}
	var action onboarding.Action
	switch step {
	case onboarding.StepLegal:
		action = onboarding.SkipLegal{}
	case onboarding.StepSocial:
		action = onboarding.SkipSocial{}
	default:
		return fmt.Errorf("step %d cannot be skipped", step)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return s.dispatch(cmd.Context(), action)
}

func runBack(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return s.dispatch(cmd.Context(), onboarding.GoBack{})
}

func runSubmit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return s.dispatch(cmd.Context(), onboarding.Submit{})
}

func runStatus(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	if interval <= 0 {
		interval = config.GetDuration(s.cfg.Onboarding.PollInterval)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !watch {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop = cancel
	}

	var printErr error
	poller := onboarding.NewStatusPoller(s.deps.Store, s.deps.Cache, s.deps.Logger)
	err = poller.Watch(ctx, s.userID, interval, func(u onboarding.StatusUpdate) {
		if u.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s  status check failed: %v\n", u.At.Format(time.Kitchen), u.Err)
			return
		}
		if printErr = s.printStatus(u); printErr != nil || !watch {
			stop()
		}
	})
	if printErr != nil {
		return printErr
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	if s.history == nil {
		return fmt.Errorf("audit trail is disabled (onboarding.audit_enabled)")
	}

	events, err := s.history.History(cmd.Context(), s.userID, limit)
	if err != nil {
		return err
	}
	if s.format == "json" {
		return writeJSON(s.out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(s.out, "no recorded transitions")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-22s", e.At.Local().Format(time.DateTime), e.Type)
		if e.Step > 0 {
			line += fmt.Sprintf(" step %d", e.Step)
		}
		if e.BusinessID != "" {
			line += "  business " + e.BusinessID
		}
		fmt.Fprintln(s.out, line)
	}
	return nil
}

func parseStep(arg string) (onboarding.Step, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || !onboarding.Step(n).Valid() {
		return onboarding.StepNone, fmt.Errorf("step must be 1-4, got %q", arg)
	}
	return onboarding.Step(n), nil
}

func readPayload(file string, stdin io.Reader) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

// decodeAction turns a step number and its JSON payload into a wizard action.
func decodeAction(step onboarding.Step, raw []byte) (onboarding.Action, error) {
	switch step {
	case onboarding.StepBasic:
		var b models.Business
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("business payload: %w", err)
		}
		return onboarding.CompleteBasic{Business: b}, nil
	case onboarding.StepLegal:
		var l models.LegalInfo
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("legal payload: %w", err)
		}
		return onboarding.CompleteLegal{Legal: l}, nil
	case onboarding.StepSocial:
		var so models.SocialInfo
		if err := json.Unmarshal(raw, &so); err != nil {
			return nil, fmt.Errorf("social payload: %w", err)
		}
		return onboarding.CompleteSocial{Social: so}, nil
	case onboarding.StepReview:
		return onboarding.Submit{}, nil
	}
	return nil, fmt.Errorf("unsupported step %d", step)
}

func (s *session) printState(st onboarding.WizardState) error {
	if s.format == "json" {
		return writeJSON(s.out, st)
	}
	fmt.Fprint(s.out, renderState(st))
	return nil
}

func (s *session) printStatus(u onboarding.StatusUpdate) error {
	if s.format == "json" {
		return writeJSON(s.out, map[string]interface{}{
			"status":  u.Status,
			"display": u.Display,
			"at":      u.At,
		})
	}
	fmt.Fprintf(s.out, "%s  %-8s  %s: %s\n", u.At.Format(time.Kitchen), u.Status, u.Display.Title, u.Display.Message)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var stepNames = map[onboarding.Step]string{
	onboarding.StepBasic:  "business details",
	onboarding.StepLegal:  "legal information",
	onboarding.StepSocial: "social presence",
	onboarding.StepReview: "review and submit",
}

func renderState(st onboarding.WizardState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "user:        %s\n", st.UserID)
	if st.BusinessID != "" {
		fmt.Fprintf(&b, "business:    %s\n", st.BusinessID)
	}
	if st.ApplicationID != "" {
		fmt.Fprintf(&b, "application: %s\n", st.ApplicationID)
	}
	fmt.Fprintf(&b, "status:      %s\n", st.Status)
	if st.Terminal {
		fmt.Fprintf(&b, "wizard:      closed (%s)\n", st.Display.Title)
	} else {
		fmt.Fprintf(&b, "wizard:      step %d of 4, %s\n", st.Step, stepNames[st.Step])
		if st.EditMode {
			fmt.Fprintf(&b, "mode:        editing a rejected application\n")
		}
	}
	fmt.Fprintf(&b, "complete:    basic=%s legal=%s social=%s\n",
		mark(st.Completeness.Basic, false),
		mark(st.Completeness.Legal, st.Skipped.Legal),
		mark(st.Completeness.Social, st.Skipped.Social),
	)
	if st.Display.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", st.Display.Message)
	}
	return b.String()
}

func mark(done, skipped bool) string {
	switch {
	case done:
		return "yes"
	case skipped:
		return "skipped"
	default:
		return "no"
	}
}
