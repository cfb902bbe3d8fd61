package model

// UserProfile is the per-user document stored in the `users` collection,
// keyed by email. The email is immutable; the nickname is mutable and is
// denormalized as a snapshot onto every Link and Comment the user authors.
type UserProfile struct {
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	CreatedAt int64  `json:"createdAt"`
}

// Comment is an immutable annotation on a Link. Once created there is no
// edit or delete path; only the AuthorNickname snapshot changes, and only
// through the profile-rename cascade.
type Comment struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	Author         string `json:"author"`
	AuthorNickname string `json:"authorNickname"`
	Timestamp      int64  `json:"timestamp"`
}

// VoteRecord tracks who voted which way on a Link. An email appears in at
// most one of Up/Down at a time; ToggleVote maintains that invariant.
type VoteRecord struct {
	Up   []string `json:"up"`
	Down []string `json:"down"`
}

// Link is a shared URL inside a Group. Links are embedded in the parent
// Group document, not independently addressable; every mutation is a
// whole-array rewrite of the parent's link list.
type Link struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Author         string     `json:"author"`
	AuthorNickname string     `json:"authorNickname"`
	Timestamp      int64      `json:"timestamp"`
	Thumbnail      string     `json:"thumbnail,omitempty"`
	Votes          VoteRecord `json:"votes"`
	Comments       []Comment  `json:"comments"`
}

// Group is the aggregate document stored in the `groups` collection.
// MemberEmails is never empty and always contains CreatedBy.
type Group struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar"`
	CreatedBy    string   `json:"createdBy"`
	MemberEmails []string `json:"memberEmails"`
	Links        []Link   `json:"links"`
	CreatedAt    int64    `json:"createdAt"`
}

// Clone returns a deep copy of the link. Mutations always operate on a
// copy so a failed write never leaves a half-mutated fetched document.
func (l Link) Clone() Link {
	out := l
	out.Votes.Up = append([]string(nil), l.Votes.Up...)
	out.Votes.Down = append([]string(nil), l.Votes.Down...)
	out.Comments = append([]Comment(nil), l.Comments...)
	return out
}

// CloneLinks deep-copies a link list.
func CloneLinks(links []Link) []Link {
	out := make([]Link, len(links))
	for i := range links {
		out[i] = links[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.MemberEmails = append([]string(nil), g.MemberEmails...)
	out.Links = CloneLinks(g.Links)
	return &out
}

// HasMember reports whether email is in the group's member set.
func (g *Group) HasMember(email string) bool {
	for _, m := range g.MemberEmails {
		if m == email {
			return true
		}
	}
	return false
}
