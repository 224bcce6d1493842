package clients

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Client{}, &models.ClientNote{}, &models.ClientActivity{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	svc, err := NewService(NewRepository(conn), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func testActor() Actor {
	return Actor{
		UserID: uuid.New(),
		OrgID:  uuid.New(),
		Name:   "Grace Hopper",
	}
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, CreateClientRequest{
		Name:  "Acme Corp",
		Email: "Billing@Acme.test",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.ClientStatusPending {
		t.Fatalf("expected pending default, got %s", created.Status)
	}
	if created.Email != "billing@acme.test" {
		t.Fatalf("expected normalized email, got %s", created.Email)
	}

	got, err := svc.Get(ctx, actor.OrgID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Acme Corp" {
		t.Fatalf("unexpected client %+v", got)
	}

	activity, err := svc.ListActivity(ctx, actor.OrgID, created.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(activity) != 1 || activity[0].Type != enums.ActivityTypeClientCreated {
		t.Fatalf("expected client_created activity, got %+v", activity)
	}
}

func TestService_GetForeignOrgNotFound(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, CreateClientRequest{Name: "Acme", Email: "a@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(ctx, uuid.New(), created.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found across orgs, got %v", err)
	}
}

func TestService_ListSearchStatusAndPagination(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	seed := []CreateClientRequest{
		{Name: "Alpha Industries", Email: "ops@alpha.test", Status: "active"},
		{Name: "Beta LLC", Email: "ops@beta.test", Status: "active"},
		{Name: "Gamma Inc", Email: "ops@gamma.test", Status: "inactive"},
	}
	for _, req := range seed {
		if _, err := svc.Create(ctx, actor, req); err != nil {
			t.Fatalf("seed %s: %v", req.Name, err)
		}
	}
	// A row in another org must never appear.
	other := testActor()
	if _, err := svc.Create(ctx, other, CreateClientRequest{Name: "Alpha Shadow", Email: "x@shadow.test"}); err != nil {
		t.Fatalf("seed foreign org: %v", err)
	}

	page, err := svc.List(ctx, actor.OrgID, ListQuery{Search: "alpha"})
	if err != nil {
		t.Fatalf("search list: %v", err)
	}
	if page.Total != 1 || page.Data[0].Name != "Alpha Industries" {
		t.Fatalf("expected single alpha match, got %+v", page)
	}

	page, err = svc.List(ctx, actor.OrgID, ListQuery{Status: "active", SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("status list: %v", err)
	}
	if page.Total != 2 || page.Data[0].Name != "Alpha Industries" {
		t.Fatalf("expected sorted active clients, got %+v", page)
	}

	page, err = svc.List(ctx, actor.OrgID, ListQuery{Limit: 2, Page: 2, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 1 || !page.HasPrev || page.HasNext {
		t.Fatalf("unexpected pagination %+v", page)
	}

	if _, err := svc.List(ctx, actor.OrgID, ListQuery{SortBy: "password_hash"}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected whitelist rejection, got %v", err)
	}
}

func TestService_UpdateRecordsStatusChange(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, CreateClientRequest{Name: "Acme", Email: "a@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := "active"
	updated, err := svc.Update(ctx, actor, created.ID, UpdateClientRequest{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != enums.ClientStatusActive {
		t.Fatalf("expected active, got %s", updated.Status)
	}

	activity, err := svc.ListActivity(ctx, actor.OrgID, created.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	var sawStatusChange bool
	for _, entry := range activity {
		if entry.Type == enums.ActivityTypeStatusChanged {
			sawStatusChange = true
		}
	}
	if !sawStatusChange {
		t.Fatalf("expected status_changed activity, got %+v", activity)
	}
}

func TestService_DeleteThenNotFound(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, CreateClientRequest{Name: "Acme", Email: "a@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, actor.OrgID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, actor.OrgID, created.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestService_BulkOperationAccountsPerID(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	first, err := svc.Create(ctx, actor, CreateClientRequest{Name: "One", Email: "one@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, actor, CreateClientRequest{Name: "Two", Email: "two@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.BulkOperation(ctx, actor, BulkOperationRequest{
		IDs:       []uuid.UUID{first.ID, second.ID, uuid.New()},
		Operation: "update_status",
		Status:    "inactive",
	})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if result.Success != 2 || result.Failed != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected accounting %+v", result)
	}

	result, err = svc.BulkOperation(ctx, actor, BulkOperationRequest{
		IDs:       []uuid.UUID{first.ID},
		Operation: "delete",
	})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Success != 1 || result.Failed != 0 {
		t.Fatalf("unexpected accounting %+v", result)
	}

	if _, err := svc.BulkOperation(ctx, actor, BulkOperationRequest{
		IDs:       []uuid.UUID{second.ID},
		Operation: "update_status",
	}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without status, got %v", err)
	}
}

func TestService_NotesFlow(t *testing.T) {
	svc := newTestService(t)
	actor := testActor()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, CreateClientRequest{Name: "Acme", Email: "a@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	note, err := svc.AddNote(ctx, actor, created.ID, CreateNoteRequest{Body: "Kickoff call went well"})
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if note.AuthorName != actor.Name {
		t.Fatalf("expected author attribution, got %+v", note)
	}

	notes, err := svc.ListNotes(ctx, actor.OrgID, created.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "Kickoff call went well" {
		t.Fatalf("unexpected notes %+v", notes)
	}

	activity, err := svc.ListActivity(ctx, actor.OrgID, created.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	var sawNoteAdded bool
	for _, entry := range activity {
		if entry.Type == enums.ActivityTypeNoteAdded {
			sawNoteAdded = true
		}
	}
	if !sawNoteAdded {
		t.Fatalf("expected note_added activity, got %+v", activity)
	}

	foreign := testActor()
	if _, err := svc.AddNote(ctx, foreign, created.ID, CreateNoteRequest{Body: "nope"}); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected cross-org note rejection, got %v", err)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	short := "brief note"
	if got := truncate(short, 50); got != short {
		t.Fatalf("expected short input unchanged, got %q", got)
	}

	long := strings.Repeat("é", 60)
	got := truncate(long, 50)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid utf-8: %q", got)
	}
	if got != strings.Repeat("é", 50)+"..." {
		t.Fatalf("expected 50 runes plus ellipsis, got %q", got)
	}
}
