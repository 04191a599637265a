package graph

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Label formatting is cosmetic: it feeds the visualisation frontends and
// is not part of the structural contract. Labels aim for a short
// human-readable summary of the configuration fragment they describe.

// maxDataParts limits how many parameter lines a service-call label shows.
const maxDataParts = 3

// triggerLabel formats a label for a trigger node based on its platform.
func triggerLabel(trigger map[string]any, index int) string {
	platform := stringOr(trigger, "platform", "")

	switch platform {
	case "state":
		entity := entityString(trigger["entity_id"])
		to := stringOr(trigger, "to", "")
		from := stringOr(trigger, "from", "")
		switch {
		case to != "" && from != "":
			return fmt.Sprintf("State: %s\n%s → %s", entity, from, to)
		case to != "":
			return fmt.Sprintf("State: %s → %s", entity, to)
		case from != "":
			return fmt.Sprintf("State: %s\nfrom %s", entity, from)
		default:
			return "State: " + entity
		}

	case "time":
		if at := trigger["at"]; at != nil {
			if list, ok := at.([]any); ok {
				parts := make([]string, 0, len(list))
				for _, t := range list {
					parts = append(parts, formatValue(t))
				}
				return "Time: " + strings.Join(parts, ", ")
			}
			return "Time: " + formatValue(at)
		}
		return "Time trigger"

	case "sun":
		event := stringOr(trigger, "event", "rise")
		if offset := stringOr(trigger, "offset", ""); offset != "" {
			return fmt.Sprintf("Sun: %s %s", event, offset)
		}
		return "Sun: " + event

	case "numeric_state":
		entity := entityString(trigger["entity_id"])
		above, hasAbove := trigger["above"]
		below, hasBelow := trigger["below"]
		switch {
		case hasAbove && hasBelow:
			return fmt.Sprintf("Numeric: %s\n%s < value < %s", entity, formatValue(below), formatValue(above))
		case hasAbove:
			return fmt.Sprintf("Numeric: %s > %s", entity, formatValue(above))
		case hasBelow:
			return fmt.Sprintf("Numeric: %s < %s", entity, formatValue(below))
		default:
			return "Numeric: " + entity
		}

	case "template":
		if tmpl := stringOr(trigger, "value_template", ""); tmpl != "" && len(tmpl) < 30 {
			return "Template:\n" + tmpl
		}
		return "Template trigger"

	case "time_pattern":
		hours := valueOr(trigger, "hours", "*")
		minutes := valueOr(trigger, "minutes", "*")
		seconds := valueOr(trigger, "seconds", "*")
		return fmt.Sprintf("Time pattern:\n%s:%s:%s", hours, minutes, seconds)

	case "webhook":
		if id := stringOr(trigger, "webhook_id", ""); id != "" {
			return "Webhook: " + id
		}
		return "Webhook trigger"

	case "event":
		if et := stringOr(trigger, "event_type", ""); et != "" {
			return "Event: " + et
		}
		return "Event trigger"

	case "mqtt":
		if topic := stringOr(trigger, "topic", ""); topic != "" {
			return "MQTT: " + topic
		}
		return "MQTT trigger"

	case "zone":
		entity := stringOr(trigger, "entity_id", "")
		zone := stringOr(trigger, "zone", "")
		if entity != "" && zone != "" {
			event := stringOr(trigger, "event", "enter")
			return fmt.Sprintf("Zone: %s\n%s %s", entity, event, zone)
		}
		return "Zone trigger"

	case "geo_location":
		if source := stringOr(trigger, "source", ""); source != "" {
			return "Geo: " + source
		}
		return "Geo location trigger"

	case "homeassistant":
		return "Home Assistant: " + stringOr(trigger, "event", "start")

	case "device":
		if t := stringOr(trigger, "type", ""); t != "" {
			return "Device: " + t
		}
		if domain := stringOr(trigger, "domain", ""); domain != "" {
			return "Device: " + domain
		}
		return "Device trigger"

	case "tag":
		if id := stringOr(trigger, "tag_id", ""); id != "" {
			return "Tag: " + id
		}
		return "Tag scanned"

	case "calendar":
		entity := stringOr(trigger, "entity_id", "")
		event := stringOr(trigger, "event", "start")
		return fmt.Sprintf("Calendar: %s\n%s", entity, event)
	}

	if platform != "" {
		return "Trigger: " + platform
	}
	if id := stringOr(trigger, "id", ""); id != "" {
		return "Trigger: " + id
	}
	if key := firstKeyExcept(trigger, "platform", "id"); key != "" {
		return "Trigger: " + key
	}
	return fmt.Sprintf("Trigger #%d", index+1)
}

// conditionLabel formats a label for a top-level condition node.
func conditionLabel(condition map[string]any, index int) string {
	condType := stringOr(condition, "condition", "unknown")

	switch condType {
	case "state":
		entity := stringOr(condition, "entity_id", "unknown")
		state := valueOr(condition, "state", "unknown")
		return fmt.Sprintf("State: %s = %s", entity, state)

	case "numeric_state":
		return "Numeric: " + stringOr(condition, "entity_id", "unknown")

	case "sun":
		if parts := beforeAfterParts(condition); len(parts) > 0 {
			return "Sun: " + strings.Join(parts, ", ")
		}
		return "Sun condition"

	case "time":
		if parts := beforeAfterParts(condition); len(parts) > 0 {
			return "Time: " + strings.Join(parts, ", ")
		}
		return "Time condition"

	case "template":
		return "Template condition"

	default:
		return fmt.Sprintf("Condition: %s #%d", condType, index+1)
	}
}

// summarizeConditions produces a short human-readable summary of a
// condition sequence, used for choose-branch and if nodes.
func summarizeConditions(conditions []any) string {
	if len(conditions) == 0 {
		return "condition"
	}

	if len(conditions) > 1 {
		first := asMapping(conditions[0])
		if first != nil {
			switch stringOr(first, "condition", "") {
			case "state", "numeric_state":
				if entity := stringOr(first, "entity_id", ""); entity != "" {
					return fmt.Sprintf("%s... +%d more", entity, len(conditions)-1)
				}
			}
		}
		return fmt.Sprintf("%d conditions", len(conditions))
	}

	cond := asMapping(conditions[0])
	if cond == nil {
		return "condition"
	}
	condType := stringOr(cond, "condition", "unknown")

	switch condType {
	case "state":
		entity := stringOr(cond, "entity_id", "entity")
		if state := valueOr(cond, "state", ""); state != "" {
			return fmt.Sprintf("%s = %s", entity, state)
		}
		return entity

	case "numeric_state":
		entity := stringOr(cond, "entity_id", "entity")
		above, hasAbove := cond["above"]
		below, hasBelow := cond["below"]
		switch {
		case hasAbove && hasBelow:
			return fmt.Sprintf("%s: %s < x < %s", entity, formatValue(below), formatValue(above))
		case hasAbove:
			return fmt.Sprintf("%s > %s", entity, formatValue(above))
		case hasBelow:
			return fmt.Sprintf("%s < %s", entity, formatValue(below))
		default:
			return entity + " numeric"
		}

	case "template":
		if tmpl := stringOr(cond, "value_template", ""); tmpl != "" && len(tmpl) < 40 {
			return "template: " + tmpl
		}
		return "template"

	case "time":
		return rangeSummary(cond, "time")

	case "sun":
		return rangeSummary(cond, "sun")

	case "zone":
		entity := stringOr(cond, "entity_id", "entity")
		zone := stringOr(cond, "zone", "zone")
		return fmt.Sprintf("%s in %s", entity, zone)

	case "device":
		if t := stringOr(cond, "type", ""); t != "" {
			return "device: " + t
		}
		return "device condition"

	case "or":
		return fmt.Sprintf("any of %d", len(asSequence(cond["conditions"])))

	case "and":
		return fmt.Sprintf("all of %d", len(asSequence(cond["conditions"])))

	case "not":
		return "NOT condition"

	default:
		return condType
	}
}

// actionLabel formats a label for a leaf action node.
func actionLabel(item any, index int) string {
	if s, ok := item.(string); ok {
		// Shorthand string action (bare service name).
		return "Action: " + s
	}

	action := asMapping(item)
	if action == nil {
		return fmt.Sprintf("Action #%d", index+1)
	}

	switch {
	case hasKey(action, "service"):
		return serviceLabel(action)

	case hasKey(action, "delay"):
		return "Delay: " + delayString(action["delay"])

	case hasKey(action, "wait_template"):
		if timeout := valueOr(action, "timeout", ""); timeout != "" {
			return fmt.Sprintf("Wait (timeout: %s)", timeout)
		}
		return "Wait for template"

	case hasKey(action, "wait_for_trigger"):
		if timeout := valueOr(action, "timeout", ""); timeout != "" {
			return fmt.Sprintf("Wait for trigger\n(timeout: %s)", timeout)
		}
		return "Wait for trigger"

	case hasKey(action, "event"):
		return "Fire event: " + valueOr(action, "event", "unknown")

	case hasKey(action, "scene"):
		return "Scene: " + valueOr(action, "scene", "unknown")

	case hasKey(action, "device_id"):
		if t := stringOr(action, "type", ""); t != "" {
			return "Device: " + t
		}
		if domain := stringOr(action, "domain", ""); domain != "" {
			return "Device: " + domain
		}
		return "Device action"

	case hasKey(action, "stop"):
		if msg := stringOr(action, "stop", ""); msg != "" {
			return "Stop: " + msg
		}
		return "Stop"

	case hasKey(action, "variables"):
		return variablesLabel(action["variables"])

	// Control constructs are expanded before labelling; these cases only
	// fire past the nesting depth cap.
	case hasKey(action, "choose"):
		return "Choose/If-Then"
	case hasKey(action, "parallel"):
		return "Parallel actions"
	case hasKey(action, "repeat"):
		return "Repeat loop"
	case hasKey(action, "if"):
		return "If condition"
	}

	if key := firstKeyExcept(action, "alias", "enabled", "continue_on_error"); key != "" {
		return "Action: " + key
	}
	return fmt.Sprintf("Action #%d", index+1)
}

// serviceLabel formats a service-call action: service name, target, and
// up to maxDataParts of the most interesting data parameters.
func serviceLabel(action map[string]any) string {
	service := valueOr(action, "service", "unknown")

	targetInfo := serviceTarget(action)
	dataParts := serviceDataParts(asMapping(action["data"]))

	lines := []string{service}
	if targetInfo != "" {
		lines = append(lines, targetInfo)
	}
	if len(dataParts) > 0 {
		shown := dataParts
		if len(shown) > maxDataParts {
			shown = shown[:maxDataParts]
		}
		lines = append(lines, shown...)
		if len(dataParts) > maxDataParts {
			lines = append(lines, fmt.Sprintf("+%d more params", len(dataParts)-maxDataParts))
		}
	}
	return strings.Join(lines, "\n")
}

// serviceTarget summarises what a service call is aimed at: entity IDs,
// areas, or devices, checked in that order across the places HA accepts
// them (target block, top level, data block).
func serviceTarget(action map[string]any) string {
	target := asMapping(action["target"])

	entityID := any(nil)
	switch {
	case target != nil && target["entity_id"] != nil:
		entityID = target["entity_id"]
	case action["entity_id"] != nil:
		entityID = action["entity_id"]
	default:
		if data := asMapping(action["data"]); data != nil {
			entityID = data["entity_id"]
		}
	}

	if entityID != nil {
		if list, ok := entityID.([]any); ok {
			switch {
			case len(list) == 1:
				return formatValue(list[0])
			case len(list) <= 3:
				return joinValues(list, ", ")
			default:
				return fmt.Sprintf("%s +%d more", formatValue(list[0]), len(list)-1)
			}
		}
		return formatValue(entityID)
	}

	if target != nil {
		if area := target["area_id"]; area != nil {
			if list, ok := area.([]any); ok {
				return "Area: " + joinValues(list, ", ")
			}
			return "Area: " + formatValue(area)
		}
		if device := target["device_id"]; device != nil {
			if list, ok := device.([]any); ok {
				return fmt.Sprintf("%d devices", len(list))
			}
			return "Device: " + formatValue(device)
		}
	}
	return ""
}

// serviceDataParts extracts display-worthy parameters from a service
// call's data block, most recognisable domains first.
func serviceDataParts(data map[string]any) []string {
	if data == nil {
		return nil
	}
	var parts []string

	// Lighting
	if v, ok := data["brightness"]; ok {
		if f, isNum := toFloat(v); isNum {
			parts = append(parts, fmt.Sprintf("Brightness: %d%%", int(f/255*100)))
		} else {
			parts = append(parts, "Brightness: "+formatValue(v))
		}
	}
	if v, ok := data["brightness_pct"]; ok {
		parts = append(parts, fmt.Sprintf("Brightness: %s%%", formatValue(v)))
	}
	if v, ok := data["rgb_color"]; ok {
		if rgb, isList := v.([]any); isList && len(rgb) == 3 {
			parts = append(parts, fmt.Sprintf("RGB: (%s,%s,%s)",
				formatValue(rgb[0]), formatValue(rgb[1]), formatValue(rgb[2])))
		} else {
			parts = append(parts, "RGB: "+formatValue(v))
		}
	}
	if v, ok := data["kelvin"]; ok {
		parts = append(parts, fmt.Sprintf("Color temp: %sK", formatValue(v)))
	}
	if v, ok := data["color_temp"]; ok {
		parts = append(parts, "Color temp: "+formatValue(v))
	}
	if v, ok := data["color_name"]; ok {
		parts = append(parts, "Color: "+formatValue(v))
	}

	// Climate
	if v, ok := data["temperature"]; ok {
		parts = append(parts, fmt.Sprintf("Temp: %s°", formatValue(v)))
	}
	low, hasLow := data["target_temp_low"]
	high, hasHigh := data["target_temp_high"]
	switch {
	case hasLow && hasHigh:
		parts = append(parts, fmt.Sprintf("Range: %s-%s°", formatValue(low), formatValue(high)))
	case hasHigh:
		parts = append(parts, fmt.Sprintf("Max: %s°", formatValue(high)))
	case hasLow:
		parts = append(parts, fmt.Sprintf("Min: %s°", formatValue(low)))
	}
	if v, ok := data["hvac_mode"]; ok {
		parts = append(parts, "Mode: "+formatValue(v))
	}
	if v, ok := data["fan_mode"]; ok {
		parts = append(parts, "Fan: "+formatValue(v))
	}

	// Covers
	if v, ok := data["position"]; ok {
		parts = append(parts, fmt.Sprintf("Position: %s%%", formatValue(v)))
	}
	if v, ok := data["tilt_position"]; ok {
		parts = append(parts, fmt.Sprintf("Tilt: %s%%", formatValue(v)))
	}

	// Media players
	if v, ok := data["media_content_id"]; ok {
		parts = append(parts, "Media: "+truncate(formatValue(v), 30))
	}
	if v, ok := data["volume_level"]; ok {
		if f, isNum := toFloat(v); isNum {
			parts = append(parts, fmt.Sprintf("Volume: %d%%", int(f*100)))
		}
	}

	// Notifications
	if v, ok := data["message"]; ok {
		parts = append(parts, fmt.Sprintf("Message: %q", truncate(formatValue(v), 40)))
	}
	if v, ok := data["title"]; ok {
		parts = append(parts, fmt.Sprintf("Title: %q", truncate(formatValue(v), 30)))
	}

	// Input helpers
	if v, ok := data["value"]; ok && !hasKey(data, "message") {
		parts = append(parts, "Value: "+formatValue(v))
	}
	if v, ok := data["option"]; ok {
		parts = append(parts, "Option: "+formatValue(v))
	}

	if v, ok := data["duration"]; ok {
		parts = append(parts, "Duration: "+formatValue(v))
	}
	if v, ok := data["state"]; ok {
		parts = append(parts, "State: "+formatValue(v))
	}

	return parts
}

// delayString formats a delay value: either a raw duration string or a
// {hours, minutes, seconds} mapping.
func delayString(delay any) string {
	m := asMapping(delay)
	if m == nil {
		if delay == nil {
			return "unknown"
		}
		return formatValue(delay)
	}

	var parts []string
	if h, ok := toFloat(m["hours"]); ok && h != 0 {
		parts = append(parts, fmt.Sprintf("%sh", formatValue(m["hours"])))
	}
	if min, ok := toFloat(m["minutes"]); ok && min != 0 {
		parts = append(parts, fmt.Sprintf("%sm", formatValue(m["minutes"])))
	}
	if s, ok := toFloat(m["seconds"]); ok && s != 0 {
		parts = append(parts, fmt.Sprintf("%ss", formatValue(m["seconds"])))
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

// variablesLabel summarises a set-variables action by variable names.
func variablesLabel(v any) string {
	vars := asMapping(v)
	if vars == nil {
		return "Set variables"
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	switch {
	case len(names) == 1:
		return "Set variable: " + names[0]
	case len(names) <= 3:
		return "Set variables:\n" + strings.Join(names, ", ")
	default:
		return fmt.Sprintf("Set %d variables", len(names))
	}
}

// entityString formats an entity_id value that may be a single ID or a
// list. Lists longer than two collapse to "first +N".
func entityString(v any) string {
	if v == nil {
		return ""
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		if len(list) <= 2 {
			return joinValues(list, ", ")
		}
		return fmt.Sprintf("%s +%d", formatValue(list[0]), len(list)-1)
	}
	return formatValue(v)
}

// beforeAfterParts builds ["after X", "before Y"] from a time/sun
// condition, omitting absent bounds.
func beforeAfterParts(cond map[string]any) []string {
	var parts []string
	if after := valueOr(cond, "after", ""); after != "" {
		parts = append(parts, "after "+after)
	}
	if before := valueOr(cond, "before", ""); before != "" {
		parts = append(parts, "before "+before)
	}
	return parts
}

// rangeSummary is the condensed form used in condition summaries.
func rangeSummary(cond map[string]any, prefix string) string {
	after := valueOr(cond, "after", "")
	before := valueOr(cond, "before", "")
	switch {
	case after != "" && before != "":
		return fmt.Sprintf("%s: %s-%s", prefix, after, before)
	case after != "":
		return fmt.Sprintf("%s after %s", prefix, after)
	case before != "":
		return fmt.Sprintf("%s before %s", prefix, before)
	default:
		return prefix + " condition"
	}
}

// formatValue renders a decoded scalar for display. JSON decodes every
// number as float64; whole values print without the trailing ".0".
func formatValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// valueOr returns cfg[key] formatted for display, or fallback when absent.
func valueOr(cfg map[string]any, key, fallback string) string {
	v, ok := cfg[key]
	if !ok || v == nil {
		return fallback
	}
	return formatValue(v)
}

func joinValues(list []any, sep string) string {
	parts := make([]string, 0, len(list))
	for _, v := range list {
		parts = append(parts, formatValue(v))
	}
	return strings.Join(parts, sep)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// firstKeyExcept returns the alphabetically first key of m that is not
// in the exclusion list, or "" when none remain. Sorting keeps fallback
// labels deterministic across parses.
func firstKeyExcept(m map[string]any, exclude ...string) string {
	keys := make([]string, 0, len(m))
outer:
	for k := range m {
		for _, ex := range exclude {
			if k == ex {
				continue outer
			}
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}
