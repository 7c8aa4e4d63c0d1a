package models

// Member represents a row in the "members" table.
type Member struct {
	ID    int64
	Name  string
	Email string
	Level string
}

// MemberInput holds the validated fields written by create and update.
// Updates replace all three fields; there is no partial update.
type MemberInput struct {
	Name  string
	Email string
	Level string
}

// MemberPayload is a create/update body as decoded from JSON, before
// validation. Values keep their JSON types (string, float64, bool, nil,
// []any, map[string]any) so type errors can be reported.
type MemberPayload struct {
	Name  any
	Email any
	Level any
}

// MemberView is the projection returned by the API.
type MemberView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Level string `json:"level"`
}

// View projects m into its API representation.
func (m *Member) View() MemberView {
	return MemberView{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Level: m.Level,
	}
}
