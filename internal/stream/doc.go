/*
Package stream decodes the proxy's event stream into conversation state.

Decode appends the user message up front, then folds every
choices[0].delta.content it finds into one assistant message at the end of
the buffer. Callers pull snapshots:

	s := stream.Decode(resp.Body, history, "How often should I test pond pH?")
	defer s.Close()
	for s.Next() {
		render(s.Snapshot())
	}
	if err := s.Err(); err != nil {
		// partial assistant text is still in s.Snapshot()
	}

Lines split across reads are reassembled by a small scanner with three
states: AwaitingLine, HaveLine and AwaitingMoreBytes. A data line whose JSON
does not parse is pushed back until more bytes arrive; if it still fails
after that it is dropped.
*/
package stream
