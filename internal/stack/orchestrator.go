// Package stack drives a single stack through create, update, delete and
// reset, gating every mutation on the stack's operational state.
package stack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nholik/stackpilot/internal/artifact"
	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/changeset"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/nholik/stackpilot/internal/template"
	"github.com/nholik/stackpilot/internal/tracker"
	"github.com/rs/zerolog"
)

const maskedValue = "****"

// TemplateParser extracts the parts of a template used for display.
type TemplateParser interface {
	Parse(body string) (*template.Document, error)
}

// ConfirmFunc approves a changeset before it is applied.
type ConfirmFunc func(cs *cfn.ChangeSet) bool

// DeleteHooks can veto a delete. Nil hooks approve.
type DeleteHooks struct {
	// ConfirmDelete is asked before anything is deleted.
	ConfirmDelete func() bool
	// ConfirmDiscardRetain is asked when resources to retain were configured
	// but the stack is not in DELETE_FAILED. Approving deletes everything.
	ConfirmDiscardRetain func() bool
}

// Orchestrator manages one stack.
type Orchestrator struct {
	cfg      Config
	client   cfn.Client
	store    artifact.BlobStore
	observer notify.Observer
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	parser   TemplateParser
	now      func() time.Time
	sleep    tracker.Sleeper

	tracker *tracker.Tracker
	poller  *changeset.Poller
	walker  *changeset.Walker
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithBlobStore enables S3 template locations and oversize uploads.
func WithBlobStore(store artifact.BlobStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithObserver sets where progress is reported.
func WithObserver(observer notify.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics records operation, poll and event metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithParser overrides the template parser.
func WithParser(parser TemplateParser) Option {
	return func(o *Orchestrator) {
		o.parser = parser
	}
}

// WithClock overrides the clock used for event cursors and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithSleeper overrides how polling loops wait.
func WithSleeper(sleep tracker.Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config, client cfn.Client, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("control plane client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stack config: %w", err)
	}

	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		client:   client,
		observer: notify.NopObserver{},
		logger:   zerolog.Nop(),
		parser:   template.Parser{},
		now:      time.Now,
		sleep:    tracker.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.observer == nil {
		o.observer = notify.NopObserver{}
	}
	o.logger = o.logger.With().Str("stack", o.cfg.StackName).Logger()

	o.tracker = tracker.New(client, o.observer, o.logger, o.cfg.PollInterval,
		tracker.WithSleeper(o.sleep),
		tracker.WithClock(o.now),
		tracker.WithMetrics(o.metrics),
	)
	o.poller = changeset.NewPoller(client, o.cfg.PollInterval,
		changeset.WithSleeper(o.sleep),
		changeset.WithMetrics(o.metrics),
	)
	o.walker = changeset.NewWalker(client)

	return o, nil
}

// Config returns the configuration with defaults applied.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

func (o *Orchestrator) templateResolver() *artifact.Resolver {
	opts := []artifact.Option{
		artifact.WithForceUpload(o.cfg.ForceS3),
		artifact.WithPrevious(o.client, o.cfg.StackName),
	}
	if o.store != nil {
		opts = append(opts, artifact.WithBlobStore(o.store))
	}
	return artifact.NewTemplateResolver(opts...)
}

func (o *Orchestrator) policyResolver() *artifact.Resolver {
	var opts []artifact.Option
	if o.store != nil {
		opts = append(opts, artifact.WithBlobStore(o.store))
	}
	return artifact.NewPolicyResolver(opts...)
}

// resolveTemplate loads the configured template, uploading it when it is too
// large to send inline.
func (o *Orchestrator) resolveTemplate(ctx context.Context) (artifact.Resolved, error) {
	resolver := o.templateResolver()
	if o.cfg.UsePreviousTemplate {
		return resolver.ResolvePrevious(ctx)
	}
	if o.cfg.TemplateLocation == "" {
		return artifact.Resolved{}, errors.New("template location is required")
	}
	res, err := resolver.Resolve(ctx, o.cfg.TemplateLocation)
	if err != nil {
		return artifact.Resolved{}, err
	}
	return resolver.PromoteIfOversize(ctx, o.cfg.StackName, res)
}

func (o *Orchestrator) resolvePolicy(ctx context.Context, location string) (artifact.Resolved, error) {
	resolver := o.policyResolver()
	res, err := resolver.Resolve(ctx, location)
	if err != nil {
		return artifact.Resolved{}, err
	}
	return resolver.PromoteIfOversize(ctx, o.cfg.StackName, res)
}

// inspect parses a template for display. Parse failures only warn since the
// control plane is the authority on template validity.
func (o *Orchestrator) inspect(body string) *template.Document {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := o.parser.Parse(body)
	if err != nil {
		o.logger.Warn().Err(err).Msg("unable to parse template for display")
		return nil
	}
	if sizer, ok := o.observer.(notify.ColumnSizer); ok {
		sizer.SetColumnWidths(doc.ColumnWidths(o.cfg.StackName))
	}
	return doc
}

func (o *Orchestrator) describeStack(doc *template.Document) string {
	if doc == nil || doc.Description == "" {
		return "stack " + o.cfg.StackName
	}
	return fmt.Sprintf("stack %s (%s)", o.cfg.StackName, doc.Description)
}

// logParameters writes parameter values at debug level with NoEcho values masked.
func (o *Orchestrator) logParameters(params []cfn.Parameter, noEcho []string) {
	if len(params) == 0 {
		return
	}
	hidden := make(map[string]struct{}, len(noEcho))
	for _, name := range noEcho {
		hidden[name] = struct{}{}
	}
	dict := zerolog.Dict()
	for _, p := range params {
		value := p.Value
		switch {
		case p.UsePreviousValue:
			value = "(previous value)"
		case value != "":
			if _, ok := hidden[p.Key]; ok {
				value = maskedValue
			}
		}
		dict = dict.Str(p.Key, value)
	}
	o.logger.Debug().Dict("parameters", dict).Msg("stack parameters")
}

// explicitParameters returns the configured parameters sorted by key.
func (o *Orchestrator) explicitParameters() []cfn.Parameter {
	keys := make([]string, 0, len(o.cfg.Parameters))
	for key := range o.cfg.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	params := make([]cfn.Parameter, 0, len(keys))
	for _, key := range keys {
		params = append(params, cfn.Parameter{Key: key, Value: o.cfg.Parameters[key]})
	}
	return params
}

// updateParameters sends explicit values and reuses deployed values for any
// other parameter the template declares. Without a parsed template every
// deployed parameter is reused.
func (o *Orchestrator) updateParameters(doc *template.Document, current *cfn.Stack) []cfn.Parameter {
	params := o.explicitParameters()

	deployed := make(map[string]struct{})
	var deployedOrder []string
	if current != nil {
		for _, p := range current.Parameters {
			deployed[p.Key] = struct{}{}
			deployedOrder = append(deployedOrder, p.Key)
		}
	}

	candidates := deployedOrder
	if doc != nil {
		candidates = doc.ParameterNames()
	}
	for _, name := range candidates {
		if _, explicit := o.cfg.Parameters[name]; explicit {
			continue
		}
		if _, ok := deployed[name]; !ok {
			continue
		}
		params = append(params, cfn.Parameter{Key: name, UsePreviousValue: true})
	}
	return params
}

// wait follows the stack to a terminal status and fails unless it succeeded.
func (o *Orchestrator) wait(ctx context.Context, stackID string, since time.Time) (*cfn.Stack, error) {
	final, err := o.tracker.Wait(ctx, stackID, since)
	if err != nil {
		return nil, err
	}
	if final.Name == "" || final.Name == stackID {
		final.Name = o.cfg.StackName
	}
	if !cfn.Succeeded(final.Status) {
		return final, &OperationFailedError{Stack: final}
	}
	return final, nil
}

// record reports a finished operation to the logger and metrics.
func (o *Orchestrator) record(operation string, started time.Time, res Result, err error) {
	finished := o.now()
	outcome := string(res.Outcome)
	if err != nil {
		outcome = "Error"
		var transport *cfn.TransportError
		if errors.As(err, &transport) {
			o.metrics.IncControlPlaneErrors()
		}
		o.logger.Error().Err(err).Str("operation", operation).Msg("stack operation failed")
	} else {
		o.logger.Info().
			Str("operation", operation).
			Str("outcome", outcome).
			Str("stack_id", res.StackID).
			Msg("stack operation finished")
	}
	o.metrics.ObserveOperation(operation, outcome, finished.Sub(started), finished)
}
