package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSlots(t *testing.T) {
	var comp comparison
	diffSlots(&comp,
		[]offeredSlot{{SlotID: "a", BookedCount: 1}, {SlotID: "b"}, {SlotID: "c", BookedCount: 2}},
		[]offeredSlot{{SlotID: "a", BookedCount: 1}, {SlotID: "c", BookedCount: 3}, {SlotID: "d"}},
	)

	assert.Equal(t, []string{"b"}, comp.OnlyLegacy)
	assert.Equal(t, []string{"d"}, comp.OnlyCurrent)
	assert.Equal(t, []string{"c"}, comp.CountDiffers)
	assert.False(t, comp.clean())
}

func TestDecodeSlotsAcceptsBothShapes(t *testing.T) {
	enveloped, err := decodeSlots([]byte(`{"data":[{"slot_id":"a","booked_count":1}],"meta":{"count":1}}`))
	require.NoError(t, err)
	assert.Equal(t, []offeredSlot{{SlotID: "a", BookedCount: 1}}, enveloped)

	bare, err := decodeSlots([]byte(`[{"slot_id":"b"}]`))
	require.NoError(t, err)
	assert.Equal(t, []offeredSlot{{SlotID: "b"}}, bare)

	_, err = decodeSlots([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestCompareProbe(t *testing.T) {
	current := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "school-1", r.URL.Query().Get("schoolId"))
		_, _ = w.Write([]byte(`{"data":[{"slot_id":"a"}]}`))
	}))
	defer current.Close()
	legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"slot_id":"a"}]`))
	}))
	defer legacy.Close()

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	comp := compareProbe(context.Background(), client, current.URL, legacy.URL, probe{SchoolID: "school-1", Date: "2024-06-03", Purpose: "school_visit"})
	assert.True(t, comp.clean())
}
