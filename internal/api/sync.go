package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nerrad567/autoview-core/internal/automation"
	"github.com/nerrad567/autoview-core/internal/infrastructure/mqtt"
)

// syncTimeout bounds registry operations triggered from MQTT callbacks.
const syncTimeout = 10 * time.Second

// subscribeDefinitionUpdates subscribes to definition topics published by the
// automation platform and keeps the registry in sync. Each config message
// upserts one automation; a removed message deletes it. Every change feeds
// the debounced re-analysis.
func (s *Server) subscribeDefinitionUpdates() error {
	if s.mqtt == nil {
		return nil // MQTT not configured; definition sync disabled
	}

	topics := mqtt.Topics{}

	configTopic := topics.AllAutomationConfigs()
	s.logger.Info("subscribing to definition updates", "topic", configTopic)
	if err := s.mqtt.Subscribe(configTopic, 1, s.handleConfigMessage); err != nil {
		return err
	}

	removedTopic := mqtt.TopicPrefixAutomation + "/+/removed"
	return s.mqtt.Subscribe(removedTopic, 1, s.handleRemovedMessage)
}

// handleConfigMessage upserts one automation from a definition payload.
func (s *Server) handleConfigMessage(topic string, payload []byte) error {
	id := mqtt.AutomationIDFromTopic(topic)
	if id == "" {
		s.logger.Warn("definition message on unexpected topic", "topic", topic)
		return nil
	}

	var definition map[string]any
	if err := json.Unmarshal(payload, &definition); err != nil {
		s.logger.Warn("failed to parse definition payload", "automation_id", id, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if err := s.upsertDefinition(ctx, id, definition); err != nil {
		s.logger.Error("failed to sync definition", "automation_id", id, "error", err)
		return nil
	}

	s.logger.Info("definition synced", "automation_id", id)
	s.notifyDefinitionChanged(id)
	return nil
}

// handleRemovedMessage deletes one automation from the registry.
func (s *Server) handleRemovedMessage(topic string, _ []byte) error {
	id := mqtt.AutomationIDFromTopic(topic)
	if id == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if err := s.registry.Delete(ctx, id); err != nil {
		if !errors.Is(err, automation.ErrNotFound) {
			s.logger.Error("failed to remove automation", "automation_id", id, "error", err)
		}
		return nil
	}

	s.logger.Info("automation removed", "automation_id", id)
	s.notifyDefinitionChanged(id)
	return nil
}

// upsertDefinition creates or updates one automation from a raw definition.
func (s *Server) upsertDefinition(ctx context.Context, id string, definition map[string]any) error {
	alias, _ := definition["alias"].(string)

	existing, err := s.registry.Get(ctx, id)
	if err == nil {
		existing.Definition = definition
		if alias != "" {
			existing.Alias = alias
		}
		return s.registry.Update(ctx, existing)
	}
	if !errors.Is(err, automation.ErrNotFound) {
		return err
	}

	auto := &automation.Automation{
		ID:         id,
		Alias:      alias,
		Enabled:    true,
		Definition: definition,
	}
	return s.registry.Create(ctx, auto)
}

// notifyDefinitionChanged publishes the changed automation's graph, notifies
// WebSocket subscribers, and schedules a debounced dependency re-analysis.
func (s *Server) notifyDefinitionChanged(automationID string) {
	s.publishGraph(automationID)

	if s.hub != nil {
		s.hub.Broadcast(ChannelGraphUpdated, map[string]any{
			"automation_id": automationID,
		})
	}

	s.scheduleAnalysis()
}

// publishGraph parses the automation and publishes its graph retained, so
// frontends joining later still see the latest rendering. Deleted automations
// get a retained tombstone cleared from the graph topic.
func (s *Server) publishGraph(automationID string) {
	if s.mqtt == nil {
		return
	}

	topics := mqtt.Topics{}
	graphTopic := topics.AutomationGraph(automationID)

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	auto, err := s.registry.Get(ctx, automationID)
	if err != nil {
		// Deleted: clear the retained graph payload
		if errors.Is(err, automation.ErrNotFound) {
			if err := s.mqtt.PublishRetained(graphTopic, nil); err != nil {
				s.logger.Warn("failed to clear retained graph", "automation_id", automationID, "error", err)
			}
		}
		return
	}

	g, err := s.parseGraph(automationID, auto)
	if err != nil {
		s.logger.Warn("failed to parse graph for publish", "automation_id", automationID, "error", err)
		return
	}

	payload, err := json.Marshal(g)
	if err != nil {
		s.logger.Error("failed to marshal graph", "automation_id", automationID, "error", err)
		return
	}

	if err := s.mqtt.PublishRetained(graphTopic, payload); err != nil {
		s.logger.Warn("failed to publish graph", "automation_id", automationID, "error", err)
	}
}

// scheduleAnalysis arms the debounce timer for a full dependency re-analysis.
// Bursts of definition changes collapse into a single rebuild.
func (s *Server) scheduleAnalysis() {
	debounce := time.Duration(s.analysisCfg.RebuildDebounce) * time.Millisecond
	if debounce <= 0 {
		s.runAnalysis()
		return
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	if s.rebuildTimer != nil {
		s.rebuildTimer.Stop()
	}
	s.rebuildTimer = time.AfterFunc(debounce, s.runAnalysis)
}

// runAnalysis rebuilds the dependency graph from the current snapshot and
// fans the result out to WebSocket subscribers and MQTT.
func (s *Server) runAnalysis() {
	defs := s.registry.DefinitionSnapshot(context.Background())

	start := time.Now()
	depGraph := s.engine.Build(defs)
	elapsed := time.Since(start)

	s.logger.Info("dependency analysis rebuilt",
		"automations", depGraph.TotalAutomations,
		"dependencies", depGraph.TotalDependencies,
		"circular", len(depGraph.CircularDependencies),
		"duration_ms", elapsed.Milliseconds(),
	)

	if s.hub != nil {
		s.hub.Broadcast(ChannelDependencyUpdated, depGraph)
		if depGraph.HasCircularDeps {
			s.hub.Broadcast(ChannelCircularDetected, depGraph.CircularDependencies)
		}
	}

	if s.mqtt != nil {
		topics := mqtt.Topics{}
		if payload, err := json.Marshal(depGraph); err == nil {
			if err := s.mqtt.PublishRetained(topics.AnalysisDependencies(), payload); err != nil {
				s.logger.Warn("failed to publish dependency graph", "error", err)
			}
		}
		if depGraph.HasCircularDeps {
			if payload, err := json.Marshal(depGraph.CircularDependencies); err == nil {
				if err := s.mqtt.PublishRetained(topics.AnalysisCircular(), payload); err != nil {
					s.logger.Warn("failed to publish circular dependencies", "error", err)
				}
			}
		}
	}

	if s.influx != nil {
		s.influx.WriteAnalysisMetric(
			depGraph.TotalAutomations,
			depGraph.TotalDependencies,
			len(depGraph.CircularDependencies),
			float64(elapsed.Microseconds())/1000.0,
		)
	}
}
