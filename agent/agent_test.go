package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/amonks/recommender/data"
	"github.com/amonks/recommender/recommender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	gotReq recommender.Request
	result *recommender.Recommendation
	err    error
}

func (rec *fakeRecommender) Recommend(ctx context.Context, req recommender.Request) (*recommender.Recommendation, error) {
	rec.gotReq = req
	return rec.result, rec.err
}

func TestRecommendCall(t *testing.T) {
	rec := &fakeRecommender{
		result: &recommender.Recommendation{Tracks: []data.Track{
			{Name: "Not"},
			{Name: "Shark Smile"},
		}},
	}
	a := &Agent{rec: rec}

	result, err := a.recommendCall(context.Background(),
		[]byte(`{"artists": ["Big Thief"], "tracks": 2}`))
	require.NoError(t, err)

	assert.Equal(t, recommender.Request{Artists: []string{"Big Thief"}, Tracks: 2}, rec.gotReq)
	assert.JSONEq(t, `{"tracks": ["Not", "Shark Smile"]}`, result)
}

func TestRecommendCallBadArguments(t *testing.T) {
	a := &Agent{rec: &fakeRecommender{}}

	_, err := a.recommendCall(context.Background(), []byte(`{"artists": "not a list"}`))
	assert.Error(t, err)
}

func TestDispatchReturnsToolErrorsToTheModel(t *testing.T) {
	a := &Agent{rec: &fakeRecommender{
		err: errors.New("no artists found with name 'Z': artist not found"),
	}}

	result := a.dispatch(context.Background(), toolName,
		[]byte(`{"artists": ["Z"], "tracks": 1}`))
	assert.JSONEq(t, `{"error": "no artists found with name 'Z': artist not found"}`, result)
}

func TestDispatchUnknownTool(t *testing.T) {
	a := &Agent{rec: &fakeRecommender{}}

	result := a.dispatch(context.Background(), "delete_everything", []byte(`{}`))
	assert.JSONEq(t, `{"error": "unknown tool 'delete_everything'"}`, result)
}

func TestRecommendToolParam(t *testing.T) {
	param := recommendToolParam()
	assert.Equal(t, toolName, param.Function.Name)

	properties, ok := param.Function.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "artists")
	assert.Contains(t, properties, "tracks")
	assert.Equal(t, []string{"artists", "tracks"}, param.Function.Parameters["required"])
}
