package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"harvest/internal/discovery"
	"harvest/internal/tdms"
	"harvest/internal/textutil"
)

const channelTypeProperty = "DAC~Channel~Type"

// TDMSExtractor reads one group of a TDMS file. Once the file opens it never
// fails: missing groups, missing channels, and unreadable channel data are
// recorded as metadata.
type TDMSExtractor struct {
	Group    string
	Channels []string
	// Open decodes a file; defaults to tdms.Open.
	Open func(path string) (*tdms.File, error)
}

// NewTDMSExtractor returns an extractor for group and the listed raw channel
// names. An empty channel list reads every channel in the group.
func NewTDMSExtractor(group string, channels []string) *TDMSExtractor {
	if strings.TrimSpace(group) == "" {
		group = "Log"
	}
	return &TDMSExtractor{Group: group, Channels: channels, Open: tdms.Open}
}

// Extract implements Extractor.
func (x *TDMSExtractor) Extract(_ context.Context, candidate discovery.Candidate) Outcome {
	open := x.Open
	if open == nil {
		open = tdms.Open
	}
	file, err := open(candidate.Path)
	if err != nil {
		return Failed(fmt.Errorf("open tdms: %w", err))
	}

	var md Metadata
	for _, p := range file.Properties {
		md.Set("file."+p.Name, propertyValue(p))
	}
	md.Set("group", x.Group)
	md.Set("sensor_type", candidate.Modality)
	if file.Incomplete {
		md.Set("incomplete_segment", true)
	}

	group, ok := file.Group(x.Group)
	if !ok {
		names := make([]string, 0, len(file.Groups))
		for _, g := range file.Groups {
			names = append(names, g.Name)
		}
		md.Set("extraction_warning", "group not found")
		md.Set("available_groups", strings.Join(names, ", "))
		return MetadataOnly(md)
	}
	for _, p := range group.Properties {
		md.Set("group."+p.Name, propertyValue(p))
	}

	targets, missing := x.targets(group)
	if len(missing) > 0 {
		md.Set("missing_channels", strings.Join(missing, ", "))
	}

	// Channel properties are collected for every target before any data is read.
	rateSet := false
	for _, ch := range targets {
		for _, p := range ch.Properties {
			md.Set("channel."+ch.Name+"."+p.Name, propertyValue(p))
		}
		if rateSet {
			continue
		}
		if inc, ok := floatProperty(ch, "wf_increment"); ok && inc > 0 {
			md.Set("increment", inc)
			md.Set("sample_rate", 1/inc)
			rateSet = true
		}
	}

	counters := map[string]int{}
	used := map[string]bool{}
	startSet := false
	channels := make([]Channel, 0, len(targets))
	for _, ch := range targets {
		samples, err := ch.ReadFloat64()
		if err != nil {
			md.Set("channel_read_errors."+ch.Name, err.Error())
			samples = nil
		}
		if ch.Truncated {
			md.Set("channel_truncated."+ch.Name, true)
		}
		if len(samples) == 0 {
			continue
		}
		if !startSet {
			if start, ok := floatProperty(ch, "wf_start_offset"); ok {
				md.Set("start_value", start)
			}
			startSet = true
		}

		name := descriptiveName(ch, counters)
		if used[name] {
			name = name + "_" + textutil.SanitizeChannelName(ch.Name)
		}
		used[name] = true

		var attrs Metadata
		attrs.Set("raw_name", ch.Name)
		attrs.Set("data_type", ch.DataType.String())
		for _, p := range ch.Properties {
			attrs.Set(p.Name, propertyValue(p))
		}
		channels = append(channels, Channel{Name: name, Samples: samples, Attributes: attrs})
	}

	out := Classify(channels, md)
	if out.Kind == KindMetadataOnly {
		out.Metadata.Set("extraction_warning", "every target channel is empty")
	}
	return out
}

// targets resolves the configured channel list against the group.
func (x *TDMSExtractor) targets(group *tdms.Group) ([]*tdms.Channel, []string) {
	if len(x.Channels) == 0 {
		return group.Channels, nil
	}
	var found []*tdms.Channel
	var missing []string
	for _, name := range x.Channels {
		if ch, ok := group.Channel(name); ok {
			found = append(found, ch)
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return found, missing
}

// descriptiveName maps thermocouple and current-clamp channels to numbered
// names; everything else keeps its sanitized raw name.
func descriptiveName(ch *tdms.Channel, counters map[string]int) string {
	kind := ""
	if p, ok := ch.Property(channelTypeProperty); ok {
		kind = strings.TrimSpace(p.String())
	}
	switch {
	case strings.EqualFold(kind, "Temperature"):
		counters["Temperature"]++
		return fmt.Sprintf("Temperature_%d", counters["Temperature"])
	case strings.EqualFold(kind, "Current"):
		counters["Current"]++
		return fmt.Sprintf("Current_%d", counters["Current"])
	default:
		return textutil.SanitizeChannelName(ch.Name)
	}
}

func floatProperty(ch *tdms.Channel, name string) (float64, bool) {
	p, ok := ch.Property(name)
	if !ok {
		return 0, false
	}
	return p.Float64()
}

func propertyValue(p tdms.Property) any {
	if p.Value == nil {
		return p.Type.String()
	}
	return p.Value
}
