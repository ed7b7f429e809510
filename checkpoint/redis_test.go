package checkpoint

import (
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/outdial/execution"
	"github.com/xraph/outdial/id"
)

func TestSnapshotRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	snap := &execution.Snapshot{
		ExecutionID: id.NewExecutionID(),
		CampaignID:  id.NewCampaignID(),
		Status:      execution.StatusDegraded,
		Counters: execution.Counters{
			Total: 100, Queued: 40, Inflight: 5,
			Completed: 55, Succeeded: 50, Failed: 5,
		},
		ConsecutiveSystemicFailures: 3,
		StartedAt:                   now.Add(-time.Minute),
		UpdatedAt:                   now,
	}

	data, err := msgpack.Marshal(toRecord(snap))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rec snapshotRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord: %v", err)
	}

	if got.ExecutionID != snap.ExecutionID || got.CampaignID != snap.CampaignID {
		t.Errorf("ids = %s/%s, want %s/%s", got.ExecutionID, got.CampaignID, snap.ExecutionID, snap.CampaignID)
	}
	if got.Status != execution.StatusDegraded {
		t.Errorf("status = %s, want %s", got.Status, execution.StatusDegraded)
	}
	if got.Counters != snap.Counters {
		t.Errorf("counters = %+v, want %+v", got.Counters, snap.Counters)
	}
	if got.ConsecutiveSystemicFailures != 3 {
		t.Errorf("streak = %d, want 3", got.ConsecutiveSystemicFailures)
	}
}

func TestFromRecordRejectsBadIDs(t *testing.T) {
	rec := snapshotRecord{ExecutionID: "not-an-id", CampaignID: id.NewCampaignID().String()}
	if _, err := fromRecord(rec); err == nil {
		t.Fatal("expected an error for a malformed execution id")
	}
}

func TestSnapshotKey(t *testing.T) {
	campaignID := id.NewCampaignID()
	want := "outdial:checkpoint:" + campaignID.String()
	if got := snapshotKey(campaignID.String()); got != want {
		t.Errorf("snapshotKey = %q, want %q", got, want)
	}
}
