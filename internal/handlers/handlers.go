// Package handlers implements the CLI commands on top of the codec, scoring and
// storage packages.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/buildtoken"
	"github.com/stellasora-tools/buildcore/internal/cache"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/extract"
	"github.com/stellasora-tools/buildcore/internal/monitor"
	"github.com/stellasora-tools/buildcore/internal/score"
	"github.com/stellasora-tools/buildcore/internal/shareurl"
	"github.com/stellasora-tools/buildcore/internal/storage"
	"github.com/stellasora-tools/buildcore/internal/worker"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// UsageError is returned when a command is called with missing arguments.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return fmt.Sprintf("%s: missing arguments", e.Command)
	}
	return fmt.Sprintf("usage: %s", e.Usage)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Backend    storage.Backend
	Scorer     *score.Scorer
	Worker     *worker.Manager
	Source     extract.Source
	Monitor    *monitor.Service
	Names      *cache.NameIndex
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger

	DefaultScheme buildtoken.Version
	Damage        config.DamageConfig
	ExportDir     string
}

// Service provides the command handlers
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Names == nil {
		deps.Names = cache.NewNameIndex()
	}
	if deps.DefaultScheme == "" {
		deps.DefaultScheme = buildtoken.VersionB
	}
	return &Service{deps: deps}
}

// command describes one registered handler.
type command struct {
	name  string
	usage string
	h     dispatcher.HandlerFunc
	opts  []dispatcher.Option
}

func (s *Service) commands() []command {
	return []command{
		{"encode", "encode <build-file> [a|b]  encode a build document into a share token", s.handleEncode, nil},
		{"decode", "decode <token|link>  decode a share token or link into a build", s.handleDecode, nil},
		{"validate", "validate <token|link>  check a build against the talent and loss-record rules", s.handleValidate, nil},
		{"shorten", "shorten <query|link>  turn a query-form link into a /b/ short link", s.handleShorten, nil},
		{"expand", "expand <short-link>  turn a /b/ short link back into the query form", s.handleExpand, nil},
		{"score", "score <effect-file>...  score effect lists and record the results", s.handleScore, []dispatcher.Option{dispatcher.Logged()}},
		{"extract", "extract <descriptions-file>  extract effects from description lines", s.handleExtract, []dispatcher.Option{dispatcher.Logged()}},
		{"damage", "damage <params-file> [variant-file]  calculate damage, or compare two parameter sets", s.handleDamage, nil},
		{"save", "save <name> <token|link>  save a build under a name", s.handleSave, []dispatcher.Option{dispatcher.Logged()}},
		{"list", "list  list saved builds", s.handleList, nil},
		{"delete", "delete <id|name>  delete a saved build and its scores", s.handleDelete, []dispatcher.Option{dispatcher.Logged()}},
		{"export", "export [name]  write saved builds and scores to a spreadsheet", s.handleExport, []dispatcher.Option{dispatcher.Logged()}},
		{"status", "status  show storage, worker and cache status", s.handleStatus, nil},
	}
}

// Register registers every command with the dispatcher and keeps it for
// internal dispatches such as record-score.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	s.deps.Dispatcher = d
	for _, c := range s.commands() {
		opts := append([]dispatcher.Option{dispatcher.Usage(c.usage)}, c.opts...)
		d.Register(c.name, c.h, opts...)
	}
}

// LoadNames fills the name index from the backend.
func (s *Service) LoadNames() error {
	if s.deps.Backend == nil {
		return nil
	}
	builds, err := s.deps.Backend.ListBuilds()
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}
	s.deps.Names.Reset()
	for _, b := range builds {
		s.deps.Names.Set(b.Name, b.ID)
	}
	return nil
}

func (s *Service) usage(name string) error {
	for _, c := range s.commands() {
		if c.name == name {
			return &UsageError{Command: name, Usage: c.usage}
		}
	}
	return &UsageError{Command: name}
}

func (s *Service) backend() (storage.Backend, error) {
	if s.deps.Backend == nil {
		return nil, errors.New("no storage backend configured")
	}
	return s.deps.Backend, nil
}

// Decoded is a build together with the token form it was read from.
type Decoded struct {
	Scheme buildtoken.Version `json:"scheme"`
	Token  string             `json:"token"`
	Build  core.Build         `json:"build"`
}

// DecodeInput accepts any share form: a /b/ short link, a /build?query link, a
// /build/<token> link, a bare query string or a bare Scheme B token. Text around a
// /build/<token> link is ignored; the first link wins.
func DecodeInput(input string) (Decoded, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return Decoded{}, &buildtoken.BuildParseError{Scheme: buildtoken.VersionB, Message: "empty token"}
	}

	if strings.Contains(in, shareurl.ShortPrefix) {
		path, err := shareurl.ExpandShortLink(in)
		if err != nil {
			return Decoded{}, &buildtoken.BuildParseError{Scheme: buildtoken.VersionA, Message: "invalid short link", Err: err}
		}
		in = path
	}

	if i := strings.Index(in, shareurl.QueryPrefix); i >= 0 {
		return decodeQuery(in[i+len(shareurl.QueryPrefix):])
	}
	if strings.Contains(in, shareurl.BuildPrefix) {
		token, err := shareurl.ParseBuildPath(in)
		if err != nil {
			// a link inside surrounding text
			tokens := shareurl.ExtractTokens(in)
			if len(tokens) == 0 {
				return Decoded{}, &buildtoken.BuildParseError{Scheme: buildtoken.VersionB, Message: "invalid build link", Err: err}
			}
			token = tokens[0]
		}
		in = token
	} else if strings.Contains(in, "=") {
		return decodeQuery(in)
	}

	b, err := buildtoken.SchemeB{}.Decode(in)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{Scheme: buildtoken.VersionB, Token: in, Build: b}, nil
}

func decodeQuery(query string) (Decoded, error) {
	query = strings.TrimPrefix(query, "?")
	b, err := buildtoken.SchemeA{}.Decode(query)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{Scheme: buildtoken.VersionA, Token: query, Build: b}, nil
}

// resolveBuild finds a saved build by numeric id or by name.
func (s *Service) resolveBuild(ref string) (core.SavedBuild, error) {
	be, err := s.backend()
	if err != nil {
		return core.SavedBuild{}, err
	}
	ref = strings.TrimSpace(ref)
	if id, ok := s.deps.Names.Get(ref); ok {
		return be.GetBuild(id)
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return be.GetBuild(uint(id))
	}
	return core.SavedBuild{}, fmt.Errorf("%q: %w", ref, storage.ErrNotFound)
}

func (s *Service) recordScore(ctx context.Context, r core.ScoreRecord) {
	d := s.deps.Dispatcher
	if d == nil || !d.HasHandler(worker.CommandRecordScore) {
		return
	}
	if _, err := d.Dispatch(ctx, dispatcher.Command{Name: worker.CommandRecordScore, Payload: r}); err != nil {
		s.deps.Logger.WarnContext(ctx, "failed to queue score record", "token", r.Token, "error", err)
	}
}
