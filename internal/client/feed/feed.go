// Package feed keeps the client's local copy of the post list and applies
// mutations optimistically: a speculative result is published immediately,
// then reconciled against the server's authoritative aggregate.
package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
)

// PostAPI is the remote half of every mutation.
type PostAPI interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ToggleReaction(ctx context.Context, postID int64, emoji model.Emoji) (model.Post, error)
	AddComment(ctx context.Context, postID int64, content string) (model.Post, error)
	CreatePost(ctx context.Context, title, content string) (model.Post, error)
}

// Actor tells the engine who is acting, so speculative edits can be
// attributed before the server confirms them.
type Actor interface {
	Current() model.Session
}

// Feed is the post store plus the optimistic mutation engine. All reads
// return deep copies; observers see each published state exactly once.
type Feed struct {
	mu        sync.Mutex
	posts     map[int64]model.Post
	order     []int64
	api       PostAPI
	actor     Actor
	observers []func(model.Post)
	log       *zap.Logger
}

// New builds an empty feed over the given transport and actor source.
func New(api PostAPI, actor Actor, log *zap.Logger) *Feed {
	return &Feed{
		posts: make(map[int64]model.Post),
		api:   api,
		actor: actor,
		log:   log,
	}
}

// Observe registers a callback invoked after every published post state,
// speculative and reconciled alike.
func (f *Feed) Observe(fn func(model.Post)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// Refresh replaces the whole store with the server's list.
func (f *Feed) Refresh(ctx context.Context) ([]model.Post, error) {
	posts, err := f.api.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.posts = make(map[int64]model.Post, len(posts))
	f.order = f.order[:0]
	for _, p := range posts {
		f.posts[p.ID] = p.Clone()
		f.order = append(f.order, p.ID)
	}
	f.mu.Unlock()
	return posts, nil
}

// Load fetches one post and stores the authoritative copy.
func (f *Feed) Load(ctx context.Context, id int64) (model.Post, error) {
	post, err := f.api.GetPost(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	f.publish(post)
	return post, nil
}

// Posts returns the stored posts in list order.
func (f *Feed) Posts() []model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Post, 0, len(f.order))
	for _, id := range f.order {
		if p, ok := f.posts[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Post returns the stored copy of one post.
func (f *Feed) Post(id int64) (model.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return model.Post{}, false
	}
	return p.Clone(), true
}

// ToggleReaction flips the actor's (post, emoji) mark. The flipped state is
// published immediately; the server's aggregate then overwrites it wholesale,
// or a full resync restores the truth if the call fails.
func (f *Feed) ToggleReaction(ctx context.Context, postID int64, emoji model.Emoji) (model.Post, error) {
	sess := f.actor.Current()
	if !sess.Authenticated() {
		return model.Post{}, errs.ErrUnauthorized
	}
	if !emoji.Valid() {
		return model.Post{}, errs.ErrValidation
	}

	base, ok := f.snapshot(postID)
	if !ok {
		return model.Post{}, errs.ErrNotFound
	}

	spec := base.Clone()
	if spec.HasReaction(emoji, sess.User.ID) {
		kept := spec.Reactions[:0]
		for _, r := range spec.Reactions {
			if r.Emoji == emoji && r.UserID == sess.User.ID {
				continue
			}
			kept = append(kept, r)
		}
		spec.Reactions = kept
	} else {
		spec.Reactions = append(spec.Reactions, model.Reaction{
			Emoji:     emoji,
			UserID:    sess.User.ID,
			CreatedAt: time.Now(),
		})
	}
	spec.Counts = spec.ReactionCounts()
	f.publish(spec)

	confirmed, err := f.api.ToggleReaction(ctx, postID, emoji)
	if err != nil {
		f.resync(ctx, postID, err)
		return model.Post{}, err
	}
	f.publish(confirmed)
	return confirmed, nil
}

// AddComment appends the actor's comment under a provisional ID, publishes
// it, then reconciles with the server's aggregate. Empty content and an
// anonymous actor are rejected before anything is dispatched.
func (f *Feed) AddComment(ctx context.Context, postID int64, content string) (model.Post, error) {
	sess := f.actor.Current()
	if !sess.Authenticated() {
		return model.Post{}, errs.ErrUnauthorized
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Post{}, errs.ErrValidation
	}

	base, ok := f.snapshot(postID)
	if !ok {
		return model.Post{}, errs.ErrNotFound
	}

	spec := base.Clone()
	spec.Comments = append(spec.Comments, model.Comment{
		ID:        time.Now().UnixMilli(), // provisional, replaced by the server
		Content:   content,
		Author:    *sess.User,
		CreatedAt: time.Now(),
	})
	f.publish(spec)

	confirmed, err := f.api.AddComment(ctx, postID, content)
	if err != nil {
		f.resync(ctx, postID, err)
		return model.Post{}, err
	}
	f.publish(confirmed)
	return confirmed, nil
}

// Publish creates a post on the server and stores the returned copy. There
// is no speculative step: the post has no identity until the server mints
// its ID.
func (f *Feed) Publish(ctx context.Context, title, content string) (model.Post, error) {
	sess := f.actor.Current()
	if !sess.Authenticated() {
		return model.Post{}, errs.ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return model.Post{}, errs.ErrValidation
	}
	post, err := f.api.CreatePost(ctx, title, content)
	if err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	f.posts[post.ID] = post.Clone()
	f.order = append([]int64{post.ID}, f.order...)
	f.mu.Unlock()
	f.notify(post)
	return post, nil
}

func (f *Feed) snapshot(id int64) (model.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return model.Post{}, false
	}
	return p.Clone(), true
}

// publish stores the post (keeping list order if it is already known) and
// notifies observers.
func (f *Feed) publish(post model.Post) {
	f.mu.Lock()
	if _, known := f.posts[post.ID]; !known {
		f.order = append(f.order, post.ID)
	}
	f.posts[post.ID] = post.Clone()
	f.mu.Unlock()
	f.notify(post)
}

// resync discards the speculative state after a failed mutation by
// refetching the post. If even the refetch fails, the stale speculative
// copy stays until the next successful read.
func (f *Feed) resync(ctx context.Context, postID int64, cause error) {
	f.log.Warn("mutation failed, resyncing post",
		zap.Int64("post_id", postID), zap.Error(cause))
	post, err := f.api.GetPost(ctx, postID)
	if err != nil {
		f.log.Warn("resync failed, keeping local copy",
			zap.Int64("post_id", postID), zap.Error(err))
		return
	}
	f.publish(post)
}

func (f *Feed) notify(post model.Post) {
	f.mu.Lock()
	obs := append(([]func(model.Post))(nil), f.observers...)
	f.mu.Unlock()
	for _, fn := range obs {
		fn(post.Clone())
	}
}
