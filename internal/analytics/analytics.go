// Package analytics accumulates per-author activity over one run and
// finalizes it into sorted summary rows.
package analytics

import (
	"sort"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// MaxPostLinks is the number of post links kept per author
const MaxPostLinks = 3

// DateLayout keys the daily activity counters
const DateLayout = "2006-01-02"

// Entry is the accumulated activity of one author.
type Entry struct {
	Nickname      string
	TotalPosts    int
	TotalComments int
	Gender        string
	City          string
	PostLinks     []string

	// commenter name -> count, with commenters in first-seen order
	commenters     map[string]int
	commenterOrder []string
	commentedOn    map[string]struct{}
	daily          map[string]int

	order int
}

// CommenterCount returns how many comments commenter left on this author's posts
func (e *Entry) CommenterCount(commenter string) int {
	return e.commenters[commenter]
}

// CommentDiversity is the number of distinct commenters on this author's posts
func (e *Entry) CommentDiversity() int {
	return len(e.commenterOrder)
}

// CommentedOn reports whether this author commented on a post by author
func (e *Entry) CommentedOn(author string) bool {
	_, ok := e.commentedOn[author]
	return ok
}

// Activity returns the posts recorded for the given date (DateLayout)
func (e *Entry) Activity(date string) int {
	return e.daily[date]
}

// MostActiveCommenter returns the commenter with the highest count. Ties go
// to whoever commented first.
func (e *Entry) MostActiveCommenter() string {
	best, bestCount := "", 0
	for _, name := range e.commenterOrder {
		if c := e.commenters[name]; c > bestCount {
			best, bestCount = name, c
		}
	}
	return best
}

// Aggregator holds the analytics of a single run. It is not safe for
// concurrent use; a run owns exactly one.
type Aggregator struct {
	entries map[string]*Entry
	next    int
}

// New returns an empty Aggregator
func New() *Aggregator {
	return &Aggregator{entries: make(map[string]*Entry)}
}

func (a *Aggregator) entry(nickname string) *Entry {
	e, ok := a.entries[nickname]
	if !ok {
		e = &Entry{
			Nickname:    nickname,
			commenters:  make(map[string]int),
			commentedOn: make(map[string]struct{}),
			daily:       make(map[string]int),
			order:       a.next,
		}
		a.next++
		a.entries[nickname] = e
	}
	return e
}

// Entry returns the entry for nickname, or nil if it was never referenced
func (a *Aggregator) Entry(nickname string) *Entry {
	return a.entries[nickname]
}

// Len returns the number of entries, including zero-activity ones
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// RecordPost counts one post by author on date. Gender and city are
// last-write-wins.
func (a *Aggregator) RecordPost(author, gender, city, date string) {
	if author == "" {
		return
	}
	e := a.entry(author)
	e.TotalPosts++
	e.Gender = gender
	e.City = city
	e.daily[date]++
}

// RecordComment counts one comment by commenter on a post by author.
func (a *Aggregator) RecordComment(author, commenter string) {
	if author == "" || commenter == "" {
		return
	}
	e := a.entry(author)
	if _, ok := e.commenters[commenter]; !ok {
		e.commenterOrder = append(e.commenterOrder, commenter)
	}
	e.commenters[commenter]++

	c := a.entry(commenter)
	c.commentedOn[author] = struct{}{}
	c.TotalComments++
}

// RecordPostLink keeps link for author unless MaxPostLinks are already kept.
func (a *Aggregator) RecordPostLink(author, link string) {
	if author == "" || link == "" {
		return
	}
	e := a.entry(author)
	if len(e.PostLinks) < MaxPostLinks {
		e.PostLinks = append(e.PostLinks, link)
	}
}

// Summarize finalizes the entries into rows sorted by posts+comments,
// descending. Equal totals keep first-seen order. Entries with no posts and
// no comments are left out. today selects the TodayActivity counter.
func (a *Aggregator) Summarize(today string) []types.AnalyticsRow {
	entries := make([]*Entry, 0, len(a.entries))
	for _, e := range a.entries {
		if e.TotalPosts == 0 && e.TotalComments == 0 {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ti := entries[i].TotalPosts + entries[i].TotalComments
		tj := entries[j].TotalPosts + entries[j].TotalComments
		if ti != tj {
			return ti > tj
		}
		return entries[i].order < entries[j].order
	})

	rows := make([]types.AnalyticsRow, len(entries))
	for i, e := range entries {
		rows[i] = types.AnalyticsRow{
			Nickname:            e.Nickname,
			TotalPosts:          e.TotalPosts,
			TotalComments:       e.TotalComments,
			MostActiveCommenter: e.MostActiveCommenter(),
			CommentDiversity:    e.CommentDiversity(),
			Gender:              e.Gender,
			City:                e.City,
			TodayActivity:       e.daily[today],
			PostLinks:           append([]string(nil), e.PostLinks...),
		}
	}
	return rows
}
