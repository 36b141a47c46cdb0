package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "chat-assistant/backend/internal/chatbot"

const (
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
)

// ErrPluginTimeout is reported when a plugin runs past the manager timeout
var ErrPluginTimeout = errors.New("plugin timed out")

// Manager runs registered plugins against incoming messages
type Manager struct {
	plugins     []Plugin
	logger      *logger.Logger
	timeout     time.Duration
	tracer      trace.Tracer
	invocations metric.Int64Counter
}

// NewManager orders plugins by descending priority, keeping registration
// order for equal priorities, and logs the resulting registry.
func NewManager(log *logger.Logger, plugins ...Plugin) *Manager {
	if log == nil {
		log = logger.GetGlobal()
	}

	sorted := make([]Plugin, len(plugins))
	copy(sorted, plugins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	m := &Manager{
		plugins: sorted,
		logger:  log.Channel("chatbot_manager"),
		tracer:  otel.Tracer(instrumentationName),
	}
	m.WithMeterProvider(otel.GetMeterProvider())
	m.logRegisteredPlugins()

	return m
}

// WithTimeout bounds every plugin invocation. Zero disables the limit.
func (m *Manager) WithTimeout(d time.Duration) *Manager {
	m.timeout = d
	return m
}

// WithMeterProvider records invocation counts through mp
func (m *Manager) WithMeterProvider(mp metric.MeterProvider) *Manager {
	counter, err := mp.Meter(instrumentationName).Int64Counter(
		"chatbot_plugin_invocations",
		metric.WithDescription("Chatbot plugin invocations by outcome"),
	)
	if err != nil {
		m.logger.Warn("Failed to create plugin invocation counter", "error", err.Error())
		return m
	}
	m.invocations = counter
	return m
}

// Plugins returns the registry in execution order
func (m *Manager) Plugins() []Plugin {
	out := make([]Plugin, len(m.plugins))
	copy(out, m.plugins)
	return out
}

// ProcessMessage offers msg to every supporting plugin and returns how many
// of them completed without error.
func (m *Manager) ProcessMessage(ctx context.Context, msg *models.Message) int {
	processed := 0

	for _, plugin := range m.plugins {
		supported, err := m.supports(plugin, msg)
		if err != nil {
			m.fail(ctx, plugin, msg, err)
			continue
		}
		if !supported {
			continue
		}

		m.logger.Debug("Processing message with plugin",
			"plugin", plugin.Name(),
			"message_id", msg.ID,
			"priority", plugin.Priority(),
		)

		if err := m.invoke(ctx, plugin, msg); err != nil {
			m.fail(ctx, plugin, msg, err)
			continue
		}

		processed++
		m.count(ctx, plugin, outcomeProcessed)
	}

	if processed == 0 {
		m.logger.Warn("No plugins processed the message", "message_id", msg.ID)
	}

	return processed
}

func (m *Manager) supports(plugin Plugin, msg *models.Message) (supported bool, err error) {
	err = SafeCall(func() error {
		supported = plugin.Supports(msg)
		return nil
	})
	return supported, err
}

func (m *Manager) fail(ctx context.Context, plugin Plugin, msg *models.Message, err error) {
	attrs := []any{
		"plugin", plugin.Name(),
		"message_id", msg.ID,
		"exception", err.Error(),
	}
	var perr *PanicError
	if errors.As(err, &perr) {
		attrs = append(attrs, "trace", string(perr.Stack))
	}
	m.logger.Error("Plugin execution failed", attrs...)
	m.count(ctx, plugin, outcomeFailed)
}

func (m *Manager) invoke(ctx context.Context, plugin Plugin, msg *models.Message) error {
	ctx, span := m.tracer.Start(ctx, "chatbot.plugin "+plugin.Name(),
		trace.WithAttributes(
			attribute.String("chatbot.plugin", plugin.Name()),
			attribute.Int("chatbot.priority", plugin.Priority()),
			attribute.Int64("chatbot.message_id", int64(msg.ID)),
		),
	)
	defer span.End()

	err := m.run(ctx, plugin, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *Manager) run(ctx context.Context, plugin Plugin, msg *models.Message) error {
	if m.timeout <= 0 {
		return SafeCall(func() error { return plugin.Process(ctx, msg) })
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- SafeCall(func() error { return plugin.Process(ctx, msg) })
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrPluginTimeout, m.timeout)
	}
}

func (m *Manager) count(ctx context.Context, plugin Plugin, outcome string) {
	if m.invocations == nil {
		return
	}
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plugin", plugin.Name()),
		attribute.String("outcome", outcome),
	))
}

func (m *Manager) logRegisteredPlugins() {
	info := make([]map[string]any, 0, len(m.plugins))
	for _, p := range m.plugins {
		info = append(info, map[string]any{
			"name":     p.Name(),
			"priority": p.Priority(),
		})
	}

	m.logger.Info("Chatbot plugins registered",
		"count", len(m.plugins),
		"plugins", info,
	)
}
