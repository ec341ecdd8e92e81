package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hexedtech/codemp/internal/wire"
	"github.com/hexedtech/codemp/pkg/api"
)

type fakeServices struct {
	buffers     []string
	users       []api.User
	bufferUsers []api.User

	createCalled string
	deleteCalled string

	accessContent string
	accessToken   string
	accessCalled  string
}

func (f *fakeServices) CreateBuffer(ctx context.Context, workspaceID, path string) error {
	f.createCalled = path
	return nil
}

func (f *fakeServices) DeleteBuffer(ctx context.Context, workspaceID, path string) error {
	f.deleteCalled = path
	return nil
}

func (f *fakeServices) AccessBuffer(ctx context.Context, workspaceID, path string) (string, string, error) {
	f.accessCalled = path
	return f.accessContent, f.accessToken, nil
}

func (f *fakeServices) ListBuffers(ctx context.Context, workspaceID string) ([]string, error) {
	return f.buffers, nil
}

func (f *fakeServices) ListUsers(ctx context.Context, workspaceID string) ([]api.User, error) {
	return f.users, nil
}

func (f *fakeServices) ListBufferUsers(ctx context.Context, workspaceID, path string) ([]api.User, error) {
	return f.bufferUsers, nil
}

func TestAttachDetach(t *testing.T) {
	svc := &fakeServices{accessContent: "hello", accessToken: "buf-tok"}
	ws := New("proj", uuid.New(), svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var installed string
	ws.SetCredentialInstaller(func(token string) { installed = token })

	ctrl, err := ws.Attach(ctx, "main.go")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if ctrl.Path() != "main.go" {
		t.Fatalf("unexpected path: %q", ctrl.Path())
	}
	if svc.accessCalled != "main.go" {
		t.Fatalf("expected AccessBuffer to be called for main.go, got %q", svc.accessCalled)
	}
	if installed != "buf-tok" {
		t.Fatalf("expected per-buffer credential to be installed, got %q", installed)
	}
	if ctrl.Content() != "hello" {
		t.Fatalf("expected buffer seeded with fetched content, got %q", ctrl.Content())
	}

	if _, ok := ws.BufferByName("main.go"); !ok {
		t.Fatalf("expected main.go to be attached")
	}

	if got := ws.Detach("main.go"); got != Detaching {
		t.Fatalf("expected Detaching, got %v", got)
	}
	if got := ws.Detach("main.go"); got != NotAttached {
		t.Fatalf("expected NotAttached on second detach, got %v", got)
	}
}

func TestFiletreeFilterSemantics(t *testing.T) {
	ws := New("proj", uuid.New(), nil)
	ws.mu.Lock()
	ws.filetree = map[string]struct{}{
		"src/main.go": {},
		"src/util.go": {},
		"README.md":   {},
	}
	ws.mu.Unlock()

	all := ws.Filetree(nil, false)
	if len(all) != 3 {
		t.Fatalf("expected all 3 paths, got %v", all)
	}

	prefix := "src/"
	matched := ws.Filetree(&prefix, false)
	if len(matched) != 2 {
		t.Fatalf("expected prefix match of 2, got %v", matched)
	}

	exact := "src/main.go"
	strict := ws.Filetree(&exact, true)
	if len(strict) != 1 || strict[0] != exact {
		t.Fatalf("expected strict match of exactly %q, got %v", exact, strict)
	}

	missing := "src/main"
	strictMiss := ws.Filetree(&missing, true)
	if len(strictMiss) != 0 {
		t.Fatalf("expected no strict match, got %v", strictMiss)
	}
}

func TestConsumeEventsFoldsJoinLeave(t *testing.T) {
	ws := New("proj", uuid.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	incoming := make(chan wire.WorkspaceEvent, 4)
	go ws.ConsumeEvents(ctx, incoming)

	uid := uuid.New()
	incoming <- wire.WorkspaceEvent{Join: &wire.UserEvent{UserID: uid.String()}}

	evCtx, evCancel := context.WithTimeout(context.Background(), time.Second)
	defer evCancel()
	ev, err := ws.Event(evCtx)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Kind != api.UserJoin || ev.Name != uid.String() {
		t.Fatalf("unexpected event: %+v", ev)
	}

	users := ws.UserList()
	if len(users) != 1 || users[0].ID != uid {
		t.Fatalf("unexpected roster: %+v", users)
	}

	incoming <- wire.WorkspaceEvent{Leave: &wire.UserEvent{UserID: uid.String()}}
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
	defer leaveCancel()
	if _, err := ws.Event(leaveCtx); err != nil {
		t.Fatalf("event: %v", err)
	}
	if got := ws.UserList(); len(got) != 0 {
		t.Fatalf("expected empty roster after leave, got %+v", got)
	}
}

func TestConsumeEventsFoldsFiletreeMutations(t *testing.T) {
	ws := New("proj", uuid.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	incoming := make(chan wire.WorkspaceEvent, 4)
	go ws.ConsumeEvents(ctx, incoming)

	incoming <- wire.WorkspaceEvent{Create: &wire.FileEvent{Path: "a.go"}}
	if _, err := ws.Event(timeoutCtx(t)); err != nil {
		t.Fatalf("event: %v", err)
	}
	if got := ws.Filetree(nil, false); len(got) != 1 || got[0] != "a.go" {
		t.Fatalf("expected [a.go], got %v", got)
	}

	incoming <- wire.WorkspaceEvent{Rename: &wire.RenameEvent{Before: "a.go", After: "b.go"}}
	if _, err := ws.Event(timeoutCtx(t)); err != nil {
		t.Fatalf("event: %v", err)
	}
	if got := ws.Filetree(nil, false); len(got) != 1 || got[0] != "b.go" {
		t.Fatalf("expected [b.go] after rename, got %v", got)
	}

	incoming <- wire.WorkspaceEvent{Delete: &wire.FileEvent{Path: "b.go"}}
	if _, err := ws.Event(timeoutCtx(t)); err != nil {
		t.Fatalf("event: %v", err)
	}
	if got := ws.Filetree(nil, false); len(got) != 0 {
		t.Fatalf("expected empty filetree after delete, got %v", got)
	}
}

func TestFetchBuffersAndUsersUseServices(t *testing.T) {
	svc := &fakeServices{
		buffers: []string{"a.go", "b.go"},
		users:   []api.User{{ID: uuid.New(), Name: "ana"}},
	}
	ws := New("proj", uuid.New(), svc)

	if err := ws.FetchBuffers(context.Background()); err != nil {
		t.Fatalf("fetch buffers: %v", err)
	}
	if got := ws.Filetree(nil, false); len(got) != 2 {
		t.Fatalf("expected 2 paths, got %v", got)
	}

	if err := ws.FetchUsers(context.Background()); err != nil {
		t.Fatalf("fetch users: %v", err)
	}
	if got := ws.UserList(); len(got) != 1 || got[0].Name != "ana" {
		t.Fatalf("unexpected roster: %+v", got)
	}
}

func TestCreateDeleteBufferCallsServices(t *testing.T) {
	svc := &fakeServices{}
	ws := New("proj", uuid.New(), svc)

	if err := ws.CreateBuffer(context.Background(), "new.go"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.createCalled != "new.go" {
		t.Fatalf("expected CreateBuffer to be called with new.go, got %q", svc.createCalled)
	}
	if got := ws.Filetree(nil, false); len(got) != 1 || got[0] != "new.go" {
		t.Fatalf("expected filetree to contain new.go, got %v", got)
	}

	if err := ws.DeleteBuffer(context.Background(), "new.go"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if svc.deleteCalled != "new.go" {
		t.Fatalf("expected DeleteBuffer to be called with new.go, got %q", svc.deleteCalled)
	}
	if got := ws.Filetree(nil, false); len(got) != 0 {
		t.Fatalf("expected empty filetree after delete, got %v", got)
	}
}

func TestListBufferUsersWithoutServicesErrors(t *testing.T) {
	ws := New("proj", uuid.New(), nil)
	if _, err := ws.ListBufferUsers(context.Background(), "a.go"); err == nil {
		t.Fatalf("expected error when no services are attached")
	}
}

func timeoutCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}
