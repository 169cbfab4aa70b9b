// Command shadow_compare replays slot availability probes against the legacy
// CRM and this service and reports where the offered slots differ.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type probe struct {
	SchoolID string `json:"school_id"`
	Date     string `json:"date"`
	Purpose  string `json:"purpose"`
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type offeredSlot struct {
	SlotID      string `json:"slot_id"`
	BookedCount int    `json:"booked_count"`
}

type comparison struct {
	Probe        probe
	OnlyLegacy   []string
	OnlyCurrent  []string
	CountDiffers []string
	Err          error
}

func (c comparison) clean() bool {
	return c.Err == nil && len(c.OnlyLegacy) == 0 && len(c.OnlyCurrent) == 0 && len(c.CountDiffers) == 0
}

func main() {
	var (
		currentBase string
		legacyBase  string
		probesPath  string
		timeout     time.Duration
	)

	flag.StringVar(&currentBase, "current-base", "http://localhost:8080/api/v1", "Admissions API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "Legacy CRM base URL")
	flag.StringVar(&probesPath, "probes", filepath.Join("scripts", "shadow_compare", "probes.json"), "Path to JSON probes file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck

	probes, err := loadProbes(probesPath)
	if err != nil {
		logger.Fatal("failed to load probes", zap.Error(err))
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = timeout

	ctx := context.Background()
	var breaking, optional int
	for _, p := range probes {
		comp := compareProbe(ctx, client, currentBase, legacyBase, p)
		report(logger, comp)
		if comp.clean() {
			continue
		}
		if p.Critical {
			breaking++
		} else {
			optional++
		}
	}

	logger.Info("shadow compare finished", zap.Int("breaking", breaking), zap.Int("optional", optional))
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file probeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return file.Probes, nil
}

func compareProbe(ctx context.Context, client *retryablehttp.Client, currentBase, legacyBase string, p probe) comparison {
	comp := comparison{Probe: p}

	current, err := fetchSlots(ctx, client, currentBase, p)
	if err != nil {
		comp.Err = fmt.Errorf("current: %w", err)
		return comp
	}
	legacy, err := fetchSlots(ctx, client, legacyBase, p)
	if err != nil {
		comp.Err = fmt.Errorf("legacy: %w", err)
		return comp
	}

	diffSlots(&comp, legacy, current)
	return comp
}

func diffSlots(comp *comparison, legacy, current []offeredSlot) {
	legacyByID := lo.SliceToMap(legacy, func(s offeredSlot) (string, int) { return s.SlotID, s.BookedCount })
	currentByID := lo.SliceToMap(current, func(s offeredSlot) (string, int) { return s.SlotID, s.BookedCount })

	comp.OnlyLegacy, comp.OnlyCurrent = lo.Difference(lo.Keys(legacyByID), lo.Keys(currentByID))
	for id, count := range legacyByID {
		if other, ok := currentByID[id]; ok && other != count {
			comp.CountDiffers = append(comp.CountDiffers, id)
		}
	}
	sort.Strings(comp.OnlyLegacy)
	sort.Strings(comp.OnlyCurrent)
	sort.Strings(comp.CountDiffers)
}

// fetchSlots accepts both the enveloped {"data": [...]} shape and a bare array.
func fetchSlots(ctx context.Context, client *retryablehttp.Client, base string, p probe) ([]offeredSlot, error) {
	query := url.Values{}
	query.Set("date", p.Date)
	query.Set("schoolId", p.SchoolID)
	query.Set("purpose", p.Purpose)
	target := strings.TrimRight(base, "/") + "/slots/available?" + query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return decodeSlots(raw)
}

func decodeSlots(raw json.RawMessage) ([]offeredSlot, error) {
	var envelope struct {
		Data []offeredSlot `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var slots []offeredSlot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("unrecognised availability payload: %w", err)
	}
	return slots, nil
}

func report(logger *zap.Logger, comp comparison) {
	fields := []zap.Field{
		zap.String("school_id", comp.Probe.SchoolID),
		zap.String("date", comp.Probe.Date),
		zap.String("purpose", comp.Probe.Purpose),
		zap.Bool("critical", comp.Probe.Critical),
	}
	switch {
	case comp.Err != nil:
		logger.Error("probe failed", append(fields, zap.Error(comp.Err))...)
	case comp.clean():
		logger.Info("probe matches", fields...)
	default:
		logger.Warn("probe differs", append(fields,
			zap.Strings("only_legacy", comp.OnlyLegacy),
			zap.Strings("only_current", comp.OnlyCurrent),
			zap.Strings("booked_count_differs", comp.CountDiffers),
		)...)
	}
}
