package chat

// Normalize converts the UI's flat turn list into the canonical ordered
// message sequence.
//
// A file-derived user turn is emitted immediately with its own content as the
// masked variant (file text is masked during upload, not here). A plain user
// turn is held pending until an assistant turn pairs with it; only the last
// turn of the list — the newest prompt awaiting a reply — is emitted unpaired.
// An assistant turn emits the held user turn (masked variant taken from the
// assistant's masked_content_user companion field) followed by the assistant
// turn itself.
func Normalize(turns []Turn) ([]CanonicalMessage, error) {
	out := make([]CanonicalMessage, 0, len(turns))
	var pending *Turn

	for i, turn := range turns {
		if turn.Role == "user" {
			if turn.IsFileContent {
				content := turn.Content
				out = append(out, CanonicalMessage{
					Role:          "user",
					Content:       turn.Content,
					IsFileData:    true,
					MaskedContent: &content,
				})
				continue
			}
			if i < len(turns)-1 {
				held := turn
				pending = &held
				continue
			}
			out = append(out, CanonicalMessage{
				Role:    "user",
				Content: turn.Content,
			})
			continue
		}

		// assistant turn: pair with the most recent unpaired user turn
		if pending == nil {
			return nil, &MalformedConversationError{Index: i}
		}
		out = append(out,
			CanonicalMessage{
				Role:          "user",
				Content:       pending.Content,
				MaskedContent: turn.MaskedContentUser,
			},
			CanonicalMessage{
				Role:          "assistant",
				Content:       turn.Content,
				MaskedContent: turn.MaskedContentAssistant,
			},
		)
	}

	return out, nil
}
