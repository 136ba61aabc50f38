// Package decisionkit is a client-side feature experimentation engine: it
// evaluates experiments, feature flags, and rollouts against a project
// datafile entirely in-process, and reports impressions and conversions to an
// event endpoint in durable batches.
//
// A Client is built from raw datafile bytes and can be refreshed at runtime
// with UpdateDatafile; each revision is an immutable snapshot, so concurrent
// decisions never observe a half-applied update. Decisions are deterministic:
// the same datafile revision, user id, and attributes always produce the same
// variation, with no server round-trip on the decision path.
//
//	client, err := decisionkit.New(datafileJSON,
//	    decisionkit.WithProfileStore(userprofile.NewMemoryStore()),
//	    decisionkit.WithEventConfig(event.Config{Endpoint: endpoint}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	variation, err := client.Activate(ctx, "checkout_test", userID, attrs)
//
// Subpackages hold the moving parts: pkg/datafile parses and indexes project
// configuration, pkg/condition evaluates audience targeting, pkg/bucketing
// implements the consistent hash split, pkg/decision combines them, and
// pkg/event batches and delivers the telemetry.
package decisionkit
