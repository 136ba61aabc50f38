package decisionkit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/decisionkit"
	"github.com/dmitrymomot/decisionkit/pkg/event"
)

// ppid1 hashes into the treatment half of the 50/50 split for experiment id
// 1886780721 and ppid2 into the control half.
const clientDatafile = `{
	"version": "4",
	"revision": "7",
	"accountId": "acc-1",
	"projectId": "proj-1",
	"anonymizeIP": false,
	"attributes": [{"id": "111", "key": "country"}],
	"audiences": [],
	"typedAudiences": [
		{
			"id": "aud-de",
			"name": "Germany",
			"conditions": {"name": "country", "type": "custom_attribute", "value": "de"}
		}
	],
	"events": [{"id": "ev-1", "key": "purchase", "experimentIds": ["1886780721"]}],
	"experiments": [
		{
			"id": "1886780721",
			"key": "ab_test",
			"status": "Running",
			"layerId": "layer-ab",
			"audienceIds": [],
			"variations": [
				{"id": "v-control", "key": "control", "featureEnabled": false},
				{
					"id": "v-treat",
					"key": "treatment",
					"featureEnabled": true,
					"variables": [{"id": "v100", "value": "large"}]
				}
			],
			"trafficAllocation": [
				{"entityId": "v-control", "endOfRange": 5000},
				{"entityId": "v-treat", "endOfRange": 10000}
			],
			"forcedVariations": {}
		},
		{
			"id": "777",
			"key": "paused_exp",
			"status": "Paused",
			"layerId": "layer-paused",
			"audienceIds": [],
			"variations": [{"id": "v-p-on", "key": "on"}],
			"trafficAllocation": [{"entityId": "v-p-on", "endOfRange": 10000}],
			"forcedVariations": {}
		}
	],
	"groups": [],
	"featureFlags": [
		{
			"id": "f1",
			"key": "checkout",
			"rolloutId": "",
			"experimentIds": ["1886780721"],
			"variables": [
				{"id": "v100", "key": "button_size", "type": "string", "defaultValue": "small"},
				{"id": "v101", "key": "max_items", "type": "integer", "defaultValue": "10"}
			]
		},
		{
			"id": "f2",
			"key": "promo",
			"rolloutId": "ro-1",
			"experimentIds": [],
			"variables": []
		}
	],
	"rollouts": [
		{
			"id": "ro-1",
			"experiments": [
				{
					"id": "801",
					"key": "promo_everyone",
					"status": "Running",
					"layerId": "layer-ro1",
					"audienceIds": [],
					"variations": [{"id": "v-ro", "key": "ro_on", "featureEnabled": true}],
					"trafficAllocation": [{"entityId": "v-ro", "endOfRange": 10000}],
					"forcedVariations": {}
				}
			]
		}
	]
}`

const updatedDatafile = `{
	"version": "4",
	"revision": "8",
	"accountId": "acc-1",
	"projectId": "proj-1",
	"attributes": [],
	"audiences": [],
	"events": [],
	"experiments": [
		{
			"id": "900",
			"key": "new_exp",
			"status": "Running",
			"layerId": "layer-new",
			"audienceIds": [],
			"variations": [{"id": "v-new", "key": "on"}],
			"trafficAllocation": [{"entityId": "v-new", "endOfRange": 10000}],
			"forcedVariations": {}
		}
	],
	"groups": [],
	"featureFlags": [],
	"rollouts": []
}`

type recordingDispatcher struct {
	mu      sync.Mutex
	batches []event.Batch
}

func (d *recordingDispatcher) Dispatch(_ context.Context, batch event.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, batch)
	return nil
}

func (d *recordingDispatcher) dispatched() []event.Batch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.Batch(nil), d.batches...)
}

func newTestClient(t *testing.T) (*decisionkit.Client, *recordingDispatcher) {
	t.Helper()
	dispatcher := &recordingDispatcher{}
	client, err := decisionkit.New([]byte(clientDatafile),
		decisionkit.WithEventDispatcher(dispatcher),
		decisionkit.WithEventConfig(event.Config{FlushInterval: time.Hour}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client, dispatcher
}

func TestNew(t *testing.T) {
	t.Run("rejects a malformed datafile", func(t *testing.T) {
		_, err := decisionkit.New([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("rejects an empty datafile", func(t *testing.T) {
		_, err := decisionkit.New(nil)
		assert.Error(t, err)
	})
}

func TestClientActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("decides and queues an impression", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		variation, err := client.Activate(ctx, "ab_test", "ppid1", nil)
		require.NoError(t, err)
		assert.Equal(t, "treatment", variation)

		require.NoError(t, client.Flush())
		batches := dispatcher.dispatched()
		require.Len(t, batches, 1)
		require.Len(t, batches[0].Visitors, 1)

		visitor := batches[0].Visitors[0]
		assert.Equal(t, "ppid1", visitor.ID)
		require.Len(t, visitor.Snapshots, 1)
		require.Len(t, visitor.Snapshots[0].Decisions, 1)
		assert.Equal(t, event.Decision{
			CampaignID:   "layer-ab",
			ExperimentID: "1886780721",
			VariationID:  "v-treat",
		}, visitor.Snapshots[0].Decisions[0])
		assert.Equal(t, "campaign_activated", visitor.Snapshots[0].Events[0].Key)
	})

	t.Run("unknown experiment key", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.Activate(ctx, "nope", "ppid1", nil)
		assert.ErrorIs(t, err, decisionkit.ErrExperimentKeyNotFound)
	})

	t.Run("empty user id", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.Activate(ctx, "ab_test", "", nil)
		assert.ErrorIs(t, err, decisionkit.ErrEmptyUserID)
	})
}

func TestClientGetVariation(t *testing.T) {
	ctx := context.Background()

	t.Run("does not queue an impression", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		variation, err := client.GetVariation(ctx, "ab_test", "ppid2", nil)
		require.NoError(t, err)
		assert.Equal(t, "control", variation)

		require.NoError(t, client.Flush())
		assert.Empty(t, dispatcher.dispatched())
	})
}

func TestClientForcedVariations(t *testing.T) {
	ctx := context.Background()

	t.Run("pin overrides bucketing", func(t *testing.T) {
		client, _ := newTestClient(t)

		// ppid2 buckets into control; pin it to treatment.
		require.True(t, client.SetForcedVariation("ab_test", "ppid2", "treatment"))

		pinned, ok := client.GetForcedVariation("ab_test", "ppid2")
		require.True(t, ok)
		assert.Equal(t, "treatment", pinned)

		variation, err := client.GetVariation(ctx, "ab_test", "ppid2", nil)
		require.NoError(t, err)
		assert.Equal(t, "treatment", variation)
	})

	t.Run("empty variation key clears the pin", func(t *testing.T) {
		client, _ := newTestClient(t)

		require.True(t, client.SetForcedVariation("ab_test", "ppid2", "treatment"))
		require.True(t, client.SetForcedVariation("ab_test", "ppid2", ""))

		_, ok := client.GetForcedVariation("ab_test", "ppid2")
		assert.False(t, ok)

		variation, err := client.GetVariation(ctx, "ab_test", "ppid2", nil)
		require.NoError(t, err)
		assert.Equal(t, "control", variation)
	})

	t.Run("pin does not revive a paused experiment", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		require.True(t, client.SetForcedVariation("paused_exp", "u1", "on"))

		variation, err := client.GetVariation(ctx, "paused_exp", "u1", nil)
		require.NoError(t, err)
		assert.Empty(t, variation)

		variation, err = client.Activate(ctx, "paused_exp", "u1", nil)
		require.NoError(t, err)
		assert.Empty(t, variation)

		require.NoError(t, client.Flush())
		assert.Empty(t, dispatcher.dispatched())
	})

	t.Run("invalid mappings are rejected", func(t *testing.T) {
		client, _ := newTestClient(t)

		assert.False(t, client.SetForcedVariation("nope", "ppid2", "treatment"))
		assert.False(t, client.SetForcedVariation("ab_test", "ppid2", "nope"))
	})
}

func TestClientFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("feature test enables and queues an impression", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		enabled, err := client.IsFeatureEnabled(ctx, "checkout", "ppid1", nil)
		require.NoError(t, err)
		assert.True(t, enabled)

		require.NoError(t, client.Flush())
		assert.Len(t, dispatcher.dispatched(), 1)
	})

	t.Run("disabled variation means feature off", func(t *testing.T) {
		client, _ := newTestClient(t)

		enabled, err := client.IsFeatureEnabled(ctx, "checkout", "ppid2", nil)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("rollout decisions queue no impression", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		enabled, err := client.IsFeatureEnabled(ctx, "promo", "u1", nil)
		require.NoError(t, err)
		assert.True(t, enabled)

		require.NoError(t, client.Flush())
		assert.Empty(t, dispatcher.dispatched())
	})

	t.Run("unknown feature key", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.IsFeatureEnabled(ctx, "nope", "u1", nil)
		assert.ErrorIs(t, err, decisionkit.ErrFeatureKeyNotFound)
	})
}

func TestClientFeatureVariables(t *testing.T) {
	ctx := context.Background()

	t.Run("variation override when enabled", func(t *testing.T) {
		client, _ := newTestClient(t)

		size, err := client.GetFeatureVariableString(ctx, "checkout", "button_size", "ppid1", nil)
		require.NoError(t, err)
		assert.Equal(t, "large", size)
	})

	t.Run("schema default when disabled", func(t *testing.T) {
		client, _ := newTestClient(t)

		size, err := client.GetFeatureVariableString(ctx, "checkout", "button_size", "ppid2", nil)
		require.NoError(t, err)
		assert.Equal(t, "small", size)
	})

	t.Run("default applies when the variation has no override", func(t *testing.T) {
		client, _ := newTestClient(t)

		maxItems, err := client.GetFeatureVariableInteger(ctx, "checkout", "max_items", "ppid1", nil)
		require.NoError(t, err)
		assert.Equal(t, 10, maxItems)
	})

	t.Run("type mismatch", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.GetFeatureVariableBoolean(ctx, "checkout", "button_size", "ppid1", nil)
		assert.ErrorIs(t, err, decisionkit.ErrVariableTypeMismatch)
	})

	t.Run("unknown variable key", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.GetFeatureVariableString(ctx, "checkout", "nope", "ppid1", nil)
		assert.ErrorIs(t, err, decisionkit.ErrVariableKeyNotFound)
	})
}

func TestClientTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a conversion with tags", func(t *testing.T) {
		client, dispatcher := newTestClient(t)

		tags := map[string]any{"revenue": 500}
		require.NoError(t, client.Track(ctx, "purchase", "u1", nil, tags))
		require.NoError(t, client.Flush())

		batches := dispatcher.dispatched()
		require.Len(t, batches, 1)
		e := batches[0].Visitors[0].Snapshots[0].Events[0]
		assert.Equal(t, "purchase", e.Key)
		assert.Equal(t, "ev-1", e.EntityID)
		require.NotNil(t, e.Revenue)
		assert.Equal(t, int64(500), *e.Revenue)
	})

	t.Run("unknown event key", func(t *testing.T) {
		client, _ := newTestClient(t)

		err := client.Track(ctx, "nope", "u1", nil, nil)
		assert.ErrorIs(t, err, event.ErrEventKeyNotFound)
	})
}

func TestClientUpdateDatafile(t *testing.T) {
	ctx := context.Background()

	t.Run("swaps to the new revision", func(t *testing.T) {
		client, _ := newTestClient(t)

		require.NoError(t, client.UpdateDatafile([]byte(updatedDatafile)))

		variation, err := client.GetVariation(ctx, "new_exp", "u1", nil)
		require.NoError(t, err)
		assert.Equal(t, "on", variation)

		_, err = client.GetVariation(ctx, "ab_test", "ppid1", nil)
		assert.ErrorIs(t, err, decisionkit.ErrExperimentKeyNotFound)
	})

	t.Run("keeps the previous revision on a bad update", func(t *testing.T) {
		client, _ := newTestClient(t)

		require.Error(t, client.UpdateDatafile([]byte("{broken")))

		variation, err := client.GetVariation(ctx, "ab_test", "ppid1", nil)
		require.NoError(t, err)
		assert.Equal(t, "treatment", variation)
	})
}

func TestClientClose(t *testing.T) {
	ctx := context.Background()
	client, dispatcher := newTestClient(t)

	_, err := client.Activate(ctx, "ab_test", "ppid1", nil)
	require.NoError(t, err)
	require.NoError(t, client.Close(ctx))

	// Close flushes the pending impression.
	assert.Len(t, dispatcher.dispatched(), 1)

	_, err = client.Activate(ctx, "ab_test", "ppid1", nil)
	assert.ErrorIs(t, err, decisionkit.ErrClientClosed)

	err = client.Track(ctx, "purchase", "u1", nil, nil)
	assert.ErrorIs(t, err, decisionkit.ErrClientClosed)
}
