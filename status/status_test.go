package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AddItem/AddSimpleItem register against the package-wide rootItem, so these
// tests clean up their own items rather than running in parallel against a
// shared tree.

func TestAddSimpleItemReportsPushedValue(t *testing.T) {
	ctx, setValue, done := AddSimpleItem(context.Background(), "queue depth")
	defer done()

	setValue(42)

	tree := evalTree(ctx, rootItem)
	items := tree["items"].(map[string]any)
	entry := items["queue depth"].(map[string]any)
	assert.Equal(t, 42, entry["value"])
}

func TestAddItemEvaluatesCallbackOnDemand(t *testing.T) {
	calls := 0
	ctx, done := AddItem(context.Background(), "runner state", func(context.Context) (any, error) {
		calls++
		return "running", nil
	})
	defer done()

	tree := evalTree(ctx, rootItem)
	items := tree["items"].(map[string]any)
	entry := items["runner state"].(map[string]any)
	assert.Equal(t, "running", entry["value"])
	assert.Equal(t, 1, calls)
}

func TestAddItemCallbackErrorSurfacesAsValue(t *testing.T) {
	ctx, done := AddItem(context.Background(), "broken", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	defer done()

	tree := evalTree(ctx, rootItem)
	items := tree["items"].(map[string]any)
	entry := items["broken"].(map[string]any)
	errMap := entry["value"].(map[string]string)
	assert.Equal(t, "boom", errMap["error"])
}

func TestNestedItemsAppearUnderParent(t *testing.T) {
	parentCtx, parentDone := AddItem(context.Background(), "pool", nil)
	defer parentDone()

	childCtx, childSetValue, childDone := AddSimpleItem(parentCtx, "worker-1")
	defer childDone()
	childSetValue("idle")

	tree := evalTree(childCtx, rootItem)
	pool := tree["items"].(map[string]any)["pool"].(map[string]any)
	children := pool["items"].(map[string]any)
	worker := children["worker-1"].(map[string]any)
	assert.Equal(t, "idle", worker["value"])
}

func TestDoneRemovesItemFromTree(t *testing.T) {
	_, done := AddItem(context.Background(), "transient", nil)
	done()

	tree := evalTree(context.Background(), rootItem)
	items, _ := tree["items"].(map[string]any)
	_, present := items["transient"]
	assert.False(t, present)
}

func TestHandleServesJSONWithItems(t *testing.T) {
	_, setValue, done := AddSimpleItem(context.Background(), "handler demo")
	defer done()
	setValue("ok")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	Handle(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "pid")
	items := body["items"].(map[string]any)
	demo := items["handler demo"].(map[string]any)
	assert.Equal(t, "ok", demo["value"])
}
