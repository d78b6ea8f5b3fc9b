package services

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	"github.com/yungbote/ielts-backend/internal/domain/content"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
)

func workbook(t *testing.T, sheet string, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestContentImportKeepsValidRows(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewContentService(log, repos.NewContentItemRepo(db, log))
	admin := adminCtx(uuid.New())

	buf := workbook(t, ImportSheet, [][]interface{}{
		{"Skill", "Kind", "Title", "Module", "Difficulty", "Body", "Answer_Key", "Published"},
		{"reading", "question_set", "Bees", "academic", "6.5", "Bees communicate by dancing.", "1=TRUE; 2=pollen", "true"},
		{"listening", "question_set", "No key", "", "", "", "", ""},
		{},
		{"writing", "prompt", "Graph", "general", "ten", "", "", ""},
		{"speaking", "prompt", "Cue card", "", "", `{"prompt":"Describe a trip"}`, "", "no"},
	})
	res, err := svc.Import(admin, buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Rows != 4 || res.Created != 1 || len(res.Errors) != 3 {
		t.Fatalf("Import: got rows=%d created=%d errors=%+v", res.Rows, res.Created, res.Errors)
	}
	wantRows := []int{3, 5, 6}
	for i, e := range res.Errors {
		if e.Row != wantRows[i] {
			t.Fatalf("error %d: got row %d, want %d (%s)", i, e.Row, wantRows[i], e.Error)
		}
	}
	item := res.Items[0]
	if item.Source != content.SourceImport || !item.Published || item.Difficulty != 6.5 {
		t.Fatalf("imported item: got source=%s published=%v difficulty=%v", item.Source, item.Published, item.Difficulty)
	}
	key, err := ParseAnswerKey(item.AnswerKey)
	if err != nil || key["2"] != "pollen" {
		t.Fatalf("answer key: got %v err %v", key, err)
	}

	_, err = svc.Import(admin, workbook(t, "other", [][]interface{}{{"skill"}, {"reading"}}))
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("wrong sheet: got %v, want 400", err)
	}
	_, err = svc.Import(admin, workbook(t, ImportSheet, [][]interface{}{{"skill", "title"}, {"reading", "x"}}))
	if ae, ok := apierr.As(err); !ok || ae.Code != "missing_column" {
		t.Fatalf("missing column: got %v", err)
	}
	_, err = svc.Import(admin, bytes.NewReader([]byte("not a zip")))
	if ae, ok := apierr.As(err); !ok || ae.Code != "invalid_workbook" {
		t.Fatalf("garbage: got %v", err)
	}
	_, err = svc.Import(userCtx(uuid.New()), workbook(t, ImportSheet, nil))
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusForbidden {
		t.Fatalf("student import: got %v, want 403", err)
	}
}
