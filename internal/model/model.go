// Package model defines domain entities shared by the client and the server.
// Field tags describe the JSON wire format of the HTTP API.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Emoji is a reaction kind. A user holds at most one reaction per
// (post, emoji) pair; toggling flips it.
type Emoji string

// Supported reaction emojis.
const (
	EmojiLike  Emoji = "LIKE"
	EmojiLove  Emoji = "LOVE"
	EmojiHaha  Emoji = "HAHA"
	EmojiWow   Emoji = "WOW"
	EmojiSad   Emoji = "SAD"
	EmojiAngry Emoji = "ANGRY"
)

// Emojis lists every valid reaction emoji.
var Emojis = []Emoji{EmojiLike, EmojiLove, EmojiHaha, EmojiWow, EmojiSad, EmojiAngry}

// Valid reports whether e is a known emoji.
func (e Emoji) Valid() bool {
	for _, k := range Emojis {
		if e == k {
			return true
		}
	}
	return false
}

// User is the public identity of an account. The client treats it as opaque:
// stored, displayed and compared by ID, never interpreted.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	IsStaff  bool      `json:"is_staff"`
}

// Account is the server-side user record. Password material never leaves
// the server.
type Account struct {
	ID        uuid.UUID
	Username  string
	Email     string
	PwdHash   []byte // Argon2id(password, SaltAuth)
	SaltAuth  []byte // per-user auth salt
	IsStaff   bool
	CreatedAt time.Time
}

// Public strips the account down to its wire representation.
func (a *Account) Public() User {
	return User{ID: a.ID, Username: a.Username, Email: a.Email, IsStaff: a.IsStaff}
}

// Reaction is a single (user, emoji) mark on a post.
type Reaction struct {
	Emoji     Emoji     `json:"emoji"`
	UserID    uuid.UUID `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a reader's comment on a post. Client-minted comments carry a
// provisional ID derived from creation time; the server replaces it.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is the aggregate the client optimistically edits: the reactions and
// comments collections change locally first and are overwritten wholesale by
// the server's authoritative copy after every mutation.
type Post struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Author      User          `json:"author"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	PublishedAt time.Time     `json:"published_at"`
	Comments    []Comment     `json:"comments"`
	Reactions   []Reaction    `json:"reactions"`
	Counts      map[Emoji]int `json:"reaction_counts,omitempty"`
}

// ReactionCounts computes the per-emoji tally from the reactions collection.
func (p *Post) ReactionCounts() map[Emoji]int {
	counts := make(map[Emoji]int, len(Emojis))
	for _, e := range Emojis {
		counts[e] = 0
	}
	for _, r := range p.Reactions {
		counts[r.Emoji]++
	}
	return counts
}

// HasReaction reports whether userID already holds emoji on the post.
func (p *Post) HasReaction(emoji Emoji, userID uuid.UUID) bool {
	for _, r := range p.Reactions {
		if r.Emoji == emoji && r.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; the optimistic engine edits copies so that
// published snapshots are never mutated in place.
func (p *Post) Clone() Post {
	cp := *p
	cp.Comments = append([]Comment(nil), p.Comments...)
	cp.Reactions = append([]Reaction(nil), p.Reactions...)
	if p.Counts != nil {
		cp.Counts = make(map[Emoji]int, len(p.Counts))
		for k, v := range p.Counts {
			cp.Counts[k] = v
		}
	}
	return cp
}

// AuthorProfile is the public about-author page: the author's identity
// plus their published posts.
type AuthorProfile struct {
	Author User   `json:"author"`
	Posts  []Post `json:"posts"`
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresAt    time.Time `json:"-"` // access token expiry (for diagnostics)
}

// Session is the client's in-memory "who is logged in" value.
// Invariant: Token is non-empty iff User is non-nil.
type Session struct {
	User         *User
	Token        string
	RefreshToken string
}

// Authenticated reports whether the session carries a logged-in user.
func (s Session) Authenticated() bool { return s.User != nil && s.Token != "" }
