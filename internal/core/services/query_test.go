package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

func TestQueryService_NotReady(t *testing.T) {
	env := newTestEnv(t)

	resp := env.query.Query(context.Background(), domain.QueryRequest{Query: "what is mosdac"})

	assert.Equal(t, domain.MessageUnavailable, resp.Response)
	assert.Equal(t, resp.Response, resp.Answer)
	assert.Empty(t, resp.SourceLinks)
	assert.Empty(t, resp.SourceDocuments)
	assert.NotNil(t, resp.SourceLinks)
}

func TestQueryService_AbsentPageIndexedBeforeAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))

	resp := env.query.Query(context.Background(), domain.QueryRequest{Query: "tell me about insat 3d"})

	assert.Equal(t, 1, env.fetcher.FetchCount(insatURL))
	exists, _ := env.content.Exists(context.Background(), domain.Slugify(insatURL))
	assert.True(t, exists, "artifact must exist after the query")
	assert.Empty(t, env.queue.Tasks())

	assert.Equal(t, "generated answer", resp.Answer)
	assert.Equal(t, []string{"https://mosdac.gov.in/insat-3d"}, resp.SourceLinks)
	assert.NotEmpty(t, resp.SourceDocuments)
}

func TestQueryService_PresentPageRefreshedInBackground(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	_, err := env.indexing.IndexPage(ctx, insatURL)
	require.NoError(t, err)
	fetches := env.fetcher.FetchCount(insatURL)

	resp := env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})

	assert.Equal(t, fetches, env.fetcher.FetchCount(insatURL), "present pages are not indexed synchronously")
	tasks := env.queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskTypeRefreshPage, tasks[0].Type)
	assert.Equal(t, insatURL, tasks[0].URL())
	assert.True(t, env.lock.IsHeld(RefreshLockName(insatURL)))
	assert.Equal(t, DefaultRefreshLockTTL, env.lock.TTL(RefreshLockName(insatURL)))
	assert.Equal(t, "generated answer", resp.Answer)
}

func TestQueryService_RefreshDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	_, _ = env.indexing.IndexPage(ctx, insatURL)

	for i := 0; i < 3; i++ {
		env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})
	}
	assert.Len(t, env.queue.Tasks(), 1)

	require.NoError(t, env.lock.Release(ctx, RefreshLockName(insatURL)))
	env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})
	assert.Len(t, env.queue.Tasks(), 2)
}

func TestQueryService_EnqueueFailureReleasesLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	_, _ = env.indexing.IndexPage(ctx, insatURL)
	env.queue.EnqueueErr = errors.New("queue down")

	resp := env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})

	assert.False(t, env.lock.IsHeld(RefreshLockName(insatURL)))
	assert.Equal(t, []string{RefreshLockName(insatURL)}, env.lock.Released())
	assert.Equal(t, "generated answer", resp.Answer, "a refresh failure must not affect the answer")
}

func TestQueryService_LockFailureStillAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	_, _ = env.indexing.IndexPage(ctx, insatURL)
	env.lock.AcquireErr = errors.New("redis unavailable")

	resp := env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})

	assert.Empty(t, env.queue.Tasks())
	assert.Equal(t, "generated answer", resp.Answer)
}

func TestQueryService_UnresolvedQuery(t *testing.T) {
	env := newTestEnv(t)
	env.links.Set("Home", testHomepage)

	resp := env.query.Query(context.Background(), domain.QueryRequest{Query: "zz"})

	assert.Equal(t, 0, env.fetcher.FetchCount(testHomepage))
	assert.Empty(t, env.queue.Tasks())
	assert.Equal(t, domain.MessageUnavailable, resp.Response)
}

func TestQueryService_AnswerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	env.model.Fail = true

	resp := env.query.Query(context.Background(), domain.QueryRequest{Query: "insat 3d", UserID: "u-1"})

	assert.Equal(t, domain.MessageAnswerFailed, resp.Response)
	assert.Empty(t, resp.SourceLinks)
	assert.Empty(t, resp.SourceDocuments)
}

func TestQueryService_EmptyAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.links.Set("INSAT-3D", insatURL)
	env.fetcher.SetPage(insatURL, pageText("insat", 200))
	env.model.Answer = "   "

	resp := env.query.Query(context.Background(), domain.QueryRequest{Query: "insat 3d"})

	assert.Equal(t, domain.MessageNoAnswer, resp.Answer)
	assert.NotEmpty(t, resp.SourceLinks)
}

func TestQueryService_IndexFailureStillAnswersFromCurrentHandle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	oceansat := "https://mosdac.gov.in/oceansat-2"
	env.fetcher.SetPage(oceansat, pageText("oceansat", 200))
	_, err := env.indexing.IndexPage(ctx, oceansat)
	require.NoError(t, err)

	env.links.Set("INSAT-3D", insatURL)
	resp := env.query.Query(ctx, domain.QueryRequest{Query: "insat 3d"})

	assert.Equal(t, "generated answer", resp.Answer)
	assert.Equal(t, []string{oceansat}, resp.SourceLinks)
}

func TestQueryService_ResolveLinksStatus(t *testing.T) {
	env := newTestEnv(t)
	env.links.Set("Oceansat-3", "https://mosdac.gov.in/oceansat-3")
	env.links.Set("Home", testHomepage)

	res := env.query.Resolve("oceansat 3 mission")
	assert.Equal(t, domain.ResolveTierPattern, res.Tier)
	assert.Equal(t, "https://mosdac.gov.in/oceansat-3", res.URL)

	links := env.query.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "Oceansat-3", links[0].Key)

	assert.Equal(t, domain.ReadinessUninitialized, env.query.Status(context.Background()).State)
}
