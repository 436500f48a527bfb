package session

import (
	"testing"

	"github.com/gearclaw/gearclaw/internal/providers"
)

func TestStore_GetOrCreate_NewSessionIsEmptyWithCwd(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	sess, err := st.GetOrCreate("sess-1", "/workspace")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.ID != "sess-1" || sess.Cwd != "/workspace" {
		t.Errorf("sess = %+v, want ID=sess-1 Cwd=/workspace", sess)
	}
	if len(sess.Messages) != 0 {
		t.Errorf("expected a freshly created session to have no messages, got %d", len(sess.Messages))
	}
}

func TestStore_SaveThenGetOrCreate_RoundTrips(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	sess, err := st.GetOrCreate("sess-2", "/workspace")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	sess.Messages = append(sess.Messages, providers.Message{Role: "user", Content: "hello"})
	if err := st.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := st.GetOrCreate("sess-2", "/ignored")
	if err != nil {
		t.Fatalf("GetOrCreate (reload): %v", err)
	}
	if len(reloaded.Messages) != 1 || reloaded.Messages[0].Content != "hello" {
		t.Errorf("reloaded messages = %+v, want one message with content 'hello'", reloaded.Messages)
	}
	if reloaded.Cwd != "/workspace" {
		t.Errorf("reloaded.Cwd = %q, want the originally saved cwd (loading shouldn't use the new cwd param)", reloaded.Cwd)
	}
}

func TestStore_List(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for _, id := range []string{"b-session", "a-session"} {
		sess, err := st.GetOrCreate(id, "")
		if err != nil {
			t.Fatalf("GetOrCreate(%q): %v", id, err)
		}
		if err := st.Save(sess); err != nil {
			t.Fatalf("Save(%q): %v", id, err)
		}
	}

	ids, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-session" || ids[1] != "b-session" {
		t.Errorf("List = %v, want sorted [a-session b-session]", ids)
	}
}

func TestStore_Delete_MissingIDIsNotAnError(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Delete("never-existed"); err != nil {
		t.Errorf("expected deleting a missing session to be a no-op, got: %v", err)
	}
}

func TestStore_RejectsPathTraversalID(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := st.GetOrCreate("../../etc/passwd", ""); err == nil {
		t.Error("expected a path-traversal session id to be rejected")
	}
}

func TestValidateID(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"", false},
		{"abc-123_DEF.ghi:jkl", true},
		{"../escape", false},
		{"has/slash", false},
		{"has space", false},
	}
	for _, c := range cases {
		err := ValidateID(c.id)
		if (err == nil) != c.valid {
			t.Errorf("ValidateID(%q) error = %v, want valid=%v", c.id, err, c.valid)
		}
	}
}
