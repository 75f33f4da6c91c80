package model

import "sort"

// PlaybackEntry is one row of a response rendered against its form.
type PlaybackEntry struct {
	FieldID  string    `json:"fieldId"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type,omitempty"`
	Answer   Answer    `json:"answer"`
	Answered bool      `json:"answered"`
	Removed  bool      `json:"removed,omitempty"`
}

// Playback lines up a response with the fields of its form, in form order.
// Answers to fields that have since been removed follow, sorted by id, so no
// stored data is hidden from the owner.
func Playback(form Form, resp Response) []PlaybackEntry {
	entries := make([]PlaybackEntry, 0, len(form.Fields))
	used := make(map[string]bool, len(resp.Answers))

	for _, f := range form.Fields {
		e := PlaybackEntry{FieldID: f.ID, Label: f.Label, Type: f.Type}
		if a, ok := resp.Answers[f.ID]; ok {
			used[f.ID] = true
			e.Answer = a.As(f.Type)
			e.Answered = !e.Answer.IsEmpty()
		} else {
			e.Answer = EmptyAnswer(f.Type)
		}
		entries = append(entries, e)
	}

	var orphans []string
	for id := range resp.Answers {
		if !used[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		a := resp.Answers[id]
		entries = append(entries, PlaybackEntry{
			FieldID:  id,
			Answer:   a,
			Answered: !a.IsEmpty(),
			Removed:  true,
		})
	}
	return entries
}
