package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

type memorySink struct {
	mu      sync.Mutex
	results []*entity.ModelResult
	fail    bool
}

func (s *memorySink) SaveResult(ctx context.Context, result *entity.ModelResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.results = append(s.results, result)
	return nil
}

func (s *memorySink) byModel(model, kind string) *entity.ModelResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ModelName == model && r.ResultType == kind {
			return r
		}
	}
	return nil
}

func staticModel(rows int) ModelFunc {
	return func(in *ModelInput) (*Frame, *Frame, error) {
		attrs := NewFrame("n")
		for i := 0; i < rows; i++ {
			attrs.Append(map[string]interface{}{"n": i})
		}
		return nil, attrs, nil
	}
}

func failingModel(in *ModelInput) (*Frame, *Frame, error) {
	return nil, nil, errors.New("boom")
}

func testExecutor(sink ResultSink, tracker Tracker, specs []ModelSpec) *Executor {
	e := NewExecutor(sink, tracker, zap.NewNop())
	if specs != nil {
		e.specs = specs
	}
	return e
}

func TestExecuteAllFullCatalog(t *testing.T) {
	txs := testTransactions(t)
	sink := &memorySink{}
	tracker := NewMemoryTracker()
	e := testExecutor(sink, tracker, nil)

	order, err := ResolveOrder(nil)
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), order, txs)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if outcome.HasFailures() || outcome.Cancelled {
		t.Fatalf("outcome = %+v, want clean completion", outcome)
	}
	if len(outcome.Completed) != 9 {
		t.Errorf("completed %d models, want 9", len(outcome.Completed))
	}
	if !tracker.Running {
		t.Error("tracker never marked running")
	}
	if got := tracker.ProgressSteps[len(tracker.ProgressSteps)-1]; got != 100 {
		t.Errorf("final progress = %d, want 100", got)
	}

	daily := sink.byModel(ModelDaily, entity.ResultKindAttrs)
	if daily == nil {
		t.Fatal("no attrs result saved for daily")
	}
	if daily.RowCount != 3 || daily.ColumnCount != 5 {
		t.Errorf("daily result = %d rows x %d cols, want 3x5", daily.RowCount, daily.ColumnCount)
	}
	var preview []map[string]interface{}
	if err := json.Unmarshal(daily.DataPreview, &preview); err != nil {
		t.Fatalf("daily preview is not valid JSON: %v", err)
	}
	if len(preview) != 3 {
		t.Errorf("daily preview has %d rows, want 3", len(preview))
	}

	txFilters := sink.byModel(ModelTransactions, entity.ResultKindFilters)
	if txFilters == nil {
		t.Error("no filters result saved for transactions")
	}
}

func TestExecuteAllProgressSteps(t *testing.T) {
	specs := []ModelSpec{
		{Name: "m1", Run: staticModel(1)},
		{Name: "m2", Run: staticModel(1)},
		{Name: "m3", Run: staticModel(1)},
	}
	tracker := NewMemoryTracker()
	e := testExecutor(&memorySink{}, tracker, specs)

	if _, err := e.ExecuteAll(context.Background(), uuid.New(), []string{"m1", "m2", "m3"}, nil); err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	want := []int{33, 66, 100}
	for i, step := range tracker.ProgressSteps {
		if step != want[i] {
			t.Errorf("progress step %d = %d, want %d", i, step, want[i])
		}
	}
}

func TestExecuteAllIsolatesFailures(t *testing.T) {
	specs := []ModelSpec{
		{Name: "m1", Run: failingModel},
		{Name: "m2", DependsOn: []string{"m1"}, Run: staticModel(1)},
		{Name: "m3", Run: staticModel(1)},
	}
	tracker := NewMemoryTracker()
	sink := &memorySink{}
	e := testExecutor(sink, tracker, specs)

	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), []string{"m1", "m2", "m3"}, nil)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if outcome.Failed["m1"] != "boom" {
		t.Errorf("Failed = %v, want m1: boom", outcome.Failed)
	}
	if outcome.Skipped["m2"] != "m1" {
		t.Errorf("Skipped = %v, want m2 blocked by m1", outcome.Skipped)
	}
	if len(outcome.Completed) != 1 || outcome.Completed[0] != "m3" {
		t.Errorf("Completed = %v, want [m3]", outcome.Completed)
	}
	if sink.byModel("m3", entity.ResultKindAttrs) == nil {
		t.Error("independent model m3 produced no result")
	}
	if tracker.Failed {
		t.Error("model failure escalated to a failed job")
	}
}

func TestExecuteAllSkipsTransitively(t *testing.T) {
	specs := []ModelSpec{
		{Name: "m1", Run: failingModel},
		{Name: "m2", DependsOn: []string{"m1"}, Run: staticModel(1)},
		{Name: "m3", DependsOn: []string{"m2"}, Run: staticModel(1)},
	}
	e := testExecutor(&memorySink{}, NewMemoryTracker(), specs)

	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), []string{"m1", "m2", "m3"}, nil)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if outcome.Skipped["m2"] != "m1" || outcome.Skipped["m3"] != "m2" {
		t.Errorf("Skipped = %v, want the whole chain behind m1", outcome.Skipped)
	}
}

func TestExecuteAllStopsWhenCancelled(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.Cancel()
	e := testExecutor(&memorySink{}, tracker, nil)

	order, _ := ResolveOrder(nil)
	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), order, testTransactions(t))
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if !outcome.Cancelled {
		t.Error("outcome not marked cancelled")
	}
	if len(outcome.Completed) != 0 {
		t.Errorf("Completed = %v, want none after cancellation", outcome.Completed)
	}
}

func TestExecuteAllPersistenceErrorFailsRun(t *testing.T) {
	e := testExecutor(&memorySink{fail: true}, NewMemoryTracker(), nil)

	order, _ := ResolveOrder(nil)
	if _, err := e.ExecuteAll(context.Background(), uuid.New(), order, testTransactions(t)); err == nil {
		t.Fatal("ExecuteAll succeeded with a failing result sink")
	}
}

func TestExecuteAllRejectsSilentModels(t *testing.T) {
	specs := []ModelSpec{
		{Name: "m1", Run: func(in *ModelInput) (*Frame, *Frame, error) {
			return nil, nil, nil
		}},
		{Name: "m2", DependsOn: []string{"m1"}, Run: staticModel(1)},
	}
	sink := &memorySink{}
	e := testExecutor(sink, NewMemoryTracker(), specs)

	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), []string{"m1", "m2"}, nil)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if _, ok := outcome.Failed["m1"]; !ok {
		t.Errorf("Failed = %v, want m1 recorded for emitting no frames", outcome.Failed)
	}
	if len(outcome.Completed) != 0 {
		t.Errorf("Completed = %v, want none", outcome.Completed)
	}
	if outcome.Skipped["m2"] != "m1" {
		t.Errorf("Skipped = %v, want m2 blocked by m1", outcome.Skipped)
	}
	if len(sink.results) != 0 {
		t.Errorf("%d results persisted for a model with no output", len(sink.results))
	}
}

func TestExecuteAllRecoversPanics(t *testing.T) {
	specs := []ModelSpec{
		{Name: "m1", Run: func(in *ModelInput) (*Frame, *Frame, error) {
			panic("index out of range")
		}},
		{Name: "m2", Run: staticModel(1)},
	}
	e := testExecutor(&memorySink{}, NewMemoryTracker(), specs)

	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), []string{"m1", "m2"}, nil)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if _, ok := outcome.Failed["m1"]; !ok {
		t.Errorf("Failed = %v, want m1 recorded after panic", outcome.Failed)
	}
	if len(outcome.Completed) != 1 {
		t.Errorf("Completed = %v, want m2 to still run", outcome.Completed)
	}
}
