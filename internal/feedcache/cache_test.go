package feedcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

func TestTimelineResolvesInOrder(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		tx.PutPost(models.Post{ID: "p1", AuthorID: "u1"})
		tx.PutPost(models.Post{ID: "p2", AuthorID: "u2"})
		tx.SetTimeline(TimelineHome, []string{"p2", "p1"})
	})

	posts := c.Timeline(TimelineHome)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, "p1", posts[1].ID)
}

func TestTimelineSkipsUnknownIDs(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		tx.PutPost(models.Post{ID: "p1", AuthorID: "u1"})
		tx.SetTimeline(TimelineHome, []string{"p1", "p-missing"})
	})

	assert.Len(t, c.Timeline(TimelineHome), 1)
}

func TestHiddenAuthorFiltersAggregatesOnly(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		tx.PutPost(models.Post{ID: "p1", AuthorID: "u1"})
		tx.PutPost(models.Post{ID: "p2", AuthorID: "u2"})
		tx.SetTimeline(TimelineHome, []string{"p1", "p2"})
		tx.HideAuthor("u2")
	})

	posts := c.Timeline(TimelineHome)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)

	// The record itself is still there and directly readable.
	_, ok := c.Post("p2")
	assert.True(t, ok)

	c.Update(func(tx *Txn) { tx.UnhideAuthor("u2") })
	assert.Len(t, c.Timeline(TimelineHome), 2)
}

func TestPrependAndAppendTimeline(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		for _, id := range []string{"p1", "p2", "p3"} {
			tx.PutPost(models.Post{ID: id, AuthorID: "u1"})
		}
		tx.SetTimeline(TimelineHome, []string{"p2"})
		tx.PrependTimeline(TimelineHome, "p3")
		tx.AppendTimeline(TimelineHome, "p1")
	})

	posts := c.Timeline(TimelineHome)
	require.Len(t, posts, 3)
	assert.Equal(t, "p3", posts[0].ID)
	assert.Equal(t, "p2", posts[1].ID)
	assert.Equal(t, "p1", posts[2].ID)
}

func TestProfileVersionBumpsPerWrite(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.ProfileVersion("u1"), "uncached profile has version zero")

	c.Update(func(tx *Txn) {
		tx.PutProfile(models.Profile{UserCompact: models.UserCompact{ID: "u1", Name: "Amelia"}})
	})
	assert.Equal(t, 1, c.ProfileVersion("u1"))

	c.Update(func(tx *Txn) {
		tx.SetProfileBlockFlags("u1", true, false)
	})
	assert.Equal(t, 2, c.ProfileVersion("u1"))

	p, ok := c.Profile("u1")
	require.True(t, ok)
	assert.True(t, p.IsBlocked)
	assert.Equal(t, "Amelia", p.Name)
}

func TestSetProfileBlockFlagsMissingProfileIsNoOp(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		tx.SetProfileBlockFlags("ghost", true, true)
	})
	assert.Equal(t, 0, c.ProfileVersion("ghost"))
}

func TestCounterUpdates(t *testing.T) {
	c := New()
	c.Update(func(tx *Txn) {
		tx.PutPost(models.Post{ID: "p1", AuthorID: "u1", LikesCount: 1})
	})

	c.Update(func(tx *Txn) {
		tx.SetPostLikes("p1", 7)
		tx.SetPostComments("p1", 3)
		tx.SetPostLikes("p-missing", 99)
	})

	p, ok := c.Post("p1")
	require.True(t, ok)
	assert.Equal(t, 7, p.LikesCount)
	assert.Equal(t, 3, p.CommentsCount)
}
