package decisionkit

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/decisionkit/pkg/datafile"
	"github.com/dmitrymomot/decisionkit/pkg/decision"
	"github.com/dmitrymomot/decisionkit/pkg/event"
	"github.com/dmitrymomot/decisionkit/pkg/logger"
)

// Client is the top-level decision engine over one datafile. It is safe for
// concurrent use; datafile updates swap an immutable config snapshot, so
// in-flight decisions keep the revision they started with.
type Client struct {
	config  atomic.Pointer[datafile.Config]
	decider *decision.Service
	builder *event.Builder
	logger  *slog.Logger

	// processor is nil when no event dispatch is configured; decisions still
	// work, impressions and conversions are dropped with a debug log.
	processor *event.Processor

	forcedMu sync.RWMutex
	forced   map[forcedKey]string

	closed atomic.Bool
}

type forcedKey struct {
	experimentKey string
	userID        string
}

// New parses the datafile and assembles the client. The raw bytes are
// validated wholesale; a client is never created from a datafile it cannot
// serve.
func New(raw []byte, opts ...Option) (*Client, error) {
	cfg, err := datafile.Parse(raw)
	if err != nil {
		return nil, err
	}

	options := &clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	c := &Client{
		builder: event.NewBuilder(),
		logger:  options.logger,
		forced:  make(map[forcedKey]string),
		decider: decision.NewService(
			decision.WithProfileStore(options.profileStore),
			decision.WithLogger(options.logger),
		),
	}
	c.config.Store(cfg)

	processor, err := buildProcessor(options)
	if err != nil {
		return nil, err
	}
	c.processor = processor

	return c, nil
}

func buildProcessor(options *clientOptions) (*event.Processor, error) {
	dispatcher := options.dispatcher
	if dispatcher == nil {
		if options.eventConfig.Endpoint == "" {
			return nil, nil
		}
		httpOpts := []event.HTTPOption{}
		if options.eventConfig.RetryAttempts > 0 {
			httpOpts = append(httpOpts, event.WithRetryAttempts(options.eventConfig.RetryAttempts))
		}
		if options.eventConfig.RetryInterval > 0 {
			httpOpts = append(httpOpts, event.WithRetryBackoff(options.eventConfig.RetryInterval))
		}
		if options.eventConfig.DispatchTimeout > 0 {
			httpOpts = append(httpOpts, event.WithRequestTimeout(options.eventConfig.DispatchTimeout))
		}
		var err error
		dispatcher, err = event.NewHTTPDispatcher(options.eventConfig.Endpoint, httpOpts...)
		if err != nil {
			return nil, err
		}
	}

	queue := options.queue
	if queue == nil {
		if options.eventConfig.QueuePath != "" {
			var err error
			queue, err = event.NewBoltQueue(options.eventConfig.QueuePath)
			if err != nil {
				return nil, err
			}
		} else {
			queue = event.NewMemoryQueue()
		}
	}

	processorOpts := []event.ProcessorOption{event.WithProcessorLogger(options.logger)}
	if options.eventConfig.BatchSize > 0 {
		processorOpts = append(processorOpts, event.WithBatchSize(options.eventConfig.BatchSize))
	}
	if options.eventConfig.FlushInterval > 0 {
		processorOpts = append(processorOpts, event.WithFlushInterval(options.eventConfig.FlushInterval))
	}
	if options.eventConfig.MaxQueueSize > 0 {
		processorOpts = append(processorOpts, event.WithMaxQueueSize(options.eventConfig.MaxQueueSize))
	}
	return event.NewProcessor(queue, dispatcher, processorOpts...), nil
}

// UpdateDatafile swaps in a new datafile revision. On parse failure the
// client keeps serving the previous revision and the error is returned.
func (c *Client) UpdateDatafile(raw []byte) error {
	cfg, err := datafile.Parse(raw)
	if err != nil {
		return err
	}
	old := c.config.Swap(cfg)
	c.logger.Info("datafile updated",
		slog.String("old_revision", old.Revision()),
		slog.String("new_revision", cfg.Revision()))
	return nil
}

// Activate decides the experiment for the user and queues an impression for
// the assigned variation. An empty key with a nil error means the user is not
// part of the experiment; no impression is queued then.
func (c *Client) Activate(ctx context.Context, experimentKey, userID string, attributes map[string]any) (string, error) {
	cfg := c.config.Load()
	experiment, variation, err := c.decide(ctx, cfg, experimentKey, userID, attributes)
	if err != nil || variation == nil {
		return "", err
	}
	c.sendImpression(ctx, cfg, experiment, variation, userID, attributes)
	return variation.Key, nil
}

// GetVariation decides the experiment without recording an impression. An
// empty key with a nil error means the user is not part of the experiment.
func (c *Client) GetVariation(ctx context.Context, experimentKey, userID string, attributes map[string]any) (string, error) {
	_, variation, err := c.decide(ctx, c.config.Load(), experimentKey, userID, attributes)
	if err != nil || variation == nil {
		return "", err
	}
	return variation.Key, nil
}

func (c *Client) decide(ctx context.Context, cfg *datafile.Config, experimentKey, userID string, attributes map[string]any) (*datafile.Experiment, *datafile.Variation, error) {
	if c.closed.Load() {
		return nil, nil, ErrClientClosed
	}
	if userID == "" {
		return nil, nil, ErrEmptyUserID
	}

	experiment, ok := cfg.ExperimentByKey(experimentKey)
	if !ok {
		return nil, nil, ErrExperimentKeyNotFound
	}

	// A runtime pin never revives an experiment that is not running.
	if experiment.Running() {
		if variation, ok := c.forcedVariationFor(experiment, userID); ok {
			return experiment, variation, nil
		}
	}

	return experiment, c.decider.Variation(ctx, cfg, experiment, userID, attributes), nil
}

// IsFeatureEnabled reports whether the feature is on for the user. Feature
// tests queue an impression; rollout decisions do not.
func (c *Client) IsFeatureEnabled(ctx context.Context, featureKey, userID string, attributes map[string]any) (bool, error) {
	cfg := c.config.Load()
	d, err := c.decideFeature(ctx, cfg, featureKey, userID, attributes)
	if err != nil {
		return false, err
	}
	if d.Source == decision.SourceFeatureTest {
		c.sendImpression(ctx, cfg, d.Experiment, d.Variation, userID, attributes)
	}
	return d.Enabled(), nil
}

func (c *Client) decideFeature(ctx context.Context, cfg *datafile.Config, featureKey, userID string, attributes map[string]any) (decision.FeatureDecision, error) {
	if c.closed.Load() {
		return decision.FeatureDecision{}, ErrClientClosed
	}
	if userID == "" {
		return decision.FeatureDecision{}, ErrEmptyUserID
	}

	flag, ok := cfg.FeatureByKey(featureKey)
	if !ok {
		return decision.FeatureDecision{}, ErrFeatureKeyNotFound
	}
	return c.decider.Feature(ctx, cfg, flag, userID, attributes), nil
}

// GetFeatureVariableString returns the string variable value for the user.
func (c *Client) GetFeatureVariableString(ctx context.Context, featureKey, variableKey, userID string, attributes map[string]any) (string, error) {
	return c.featureVariable(ctx, featureKey, variableKey, userID, attributes, datafile.VariableTypeString)
}

// GetFeatureVariableBoolean returns the boolean variable value for the user.
func (c *Client) GetFeatureVariableBoolean(ctx context.Context, featureKey, variableKey, userID string, attributes map[string]any) (bool, error) {
	raw, err := c.featureVariable(ctx, featureKey, variableKey, userID, attributes, datafile.VariableTypeBoolean)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(raw)
}

// GetFeatureVariableDouble returns the double variable value for the user.
func (c *Client) GetFeatureVariableDouble(ctx context.Context, featureKey, variableKey, userID string, attributes map[string]any) (float64, error) {
	raw, err := c.featureVariable(ctx, featureKey, variableKey, userID, attributes, datafile.VariableTypeDouble)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// GetFeatureVariableInteger returns the integer variable value for the user.
func (c *Client) GetFeatureVariableInteger(ctx context.Context, featureKey, variableKey, userID string, attributes map[string]any) (int, error) {
	raw, err := c.featureVariable(ctx, featureKey, variableKey, userID, attributes, datafile.VariableTypeInteger)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// featureVariable resolves a variable to its raw string value: the
// variation-level override when the decided variation enables the feature,
// the schema default otherwise.
func (c *Client) featureVariable(ctx context.Context, featureKey, variableKey, userID string, attributes map[string]any, wantType string) (string, error) {
	cfg := c.config.Load()

	flag, ok := cfg.FeatureByKey(featureKey)
	if !ok {
		return "", ErrFeatureKeyNotFound
	}
	variable, ok := flag.VariableByKey(variableKey)
	if !ok {
		return "", ErrVariableKeyNotFound
	}
	if variable.Type != wantType {
		return "", ErrVariableTypeMismatch
	}

	d, err := c.decideFeature(ctx, cfg, featureKey, userID, attributes)
	if err != nil {
		return "", err
	}
	if d.Enabled() {
		if override, ok := d.Variation.VariableValueByID(variable.ID); ok {
			return override, nil
		}
	}
	return variable.DefaultValue, nil
}

// Track queues a conversion for the named event. Unknown event keys fail;
// dispatch itself is asynchronous and at-least-once.
func (c *Client) Track(ctx context.Context, eventKey, userID string, attributes map[string]any, tags map[string]any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if userID == "" {
		return ErrEmptyUserID
	}

	cfg := c.config.Load()
	ue, err := c.builder.Conversion(cfg, eventKey, userID, attributes, tags)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, ue, eventKey)
}

func (c *Client) sendImpression(ctx context.Context, cfg *datafile.Config, experiment *datafile.Experiment, variation *datafile.Variation, userID string, attributes map[string]any) {
	ue := c.builder.Impression(cfg, experiment, variation, userID, attributes)
	if err := c.enqueue(ctx, ue, event.ImpressionKey); err != nil {
		c.logger.WarnContext(ctx, "impression dropped",
			logger.Experiment(experiment.Key),
			logger.Error(err))
	}
}

func (c *Client) enqueue(ctx context.Context, ue event.UserEvent, key string) error {
	if c.processor == nil {
		c.logger.DebugContext(ctx, "event dispatch not configured, dropping event",
			slog.String("event", key))
		return nil
	}
	return c.processor.Process(ue)
}

// Flush synchronously drains the pending-event queue.
func (c *Client) Flush() error {
	if c.processor == nil {
		return nil
	}
	return c.processor.Flush()
}

// Close flushes pending events bounded by ctx and releases the event queue.
// The client rejects further operations afterwards.
func (c *Client) Close(ctx context.Context) error {
	c.closed.Store(true)
	if c.processor == nil {
		return nil
	}
	return c.processor.Stop(ctx)
}

// SetForcedVariation pins the user to a variation of the experiment, ahead of
// whitelists, profiles, audiences, and bucketing. The pin only takes effect
// while the experiment is running. An empty variation key clears the pin. It
// reports whether the mapping was accepted against the current datafile.
func (c *Client) SetForcedVariation(experimentKey, userID, variationKey string) bool {
	cfg := c.config.Load()
	experiment, ok := cfg.ExperimentByKey(experimentKey)
	if !ok {
		return false
	}

	key := forcedKey{experimentKey: experimentKey, userID: userID}

	c.forcedMu.Lock()
	defer c.forcedMu.Unlock()
	if variationKey == "" {
		delete(c.forced, key)
		return true
	}
	if _, ok := experiment.VariationByKey(variationKey); !ok {
		return false
	}
	c.forced[key] = variationKey
	return true
}

// GetForcedVariation returns the pinned variation key for the user and
// experiment, if any.
func (c *Client) GetForcedVariation(experimentKey, userID string) (string, bool) {
	c.forcedMu.RLock()
	defer c.forcedMu.RUnlock()
	key, ok := c.forced[forcedKey{experimentKey: experimentKey, userID: userID}]
	return key, ok
}

// forcedVariationFor resolves a runtime pin against the current experiment.
// Pins referencing variations removed by a datafile update are ignored.
func (c *Client) forcedVariationFor(experiment *datafile.Experiment, userID string) (*datafile.Variation, bool) {
	variationKey, ok := c.GetForcedVariation(experiment.Key, userID)
	if !ok {
		return nil, false
	}
	variation, ok := experiment.VariationByKey(variationKey)
	if !ok {
		return nil, false
	}
	return variation, true
}
