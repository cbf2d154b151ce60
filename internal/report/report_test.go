package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/types"
)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func sampleEntries() ([]types.Entry, []engine.Analysis) {
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	entries := []types.Entry{
		{Food: "Cheeseburger", Date: "2024-03-02", Timestamp: base, MealType: types.MealLunch, Sick: true},
		{Food: "Oatmeal", Date: "2024-03-01", Timestamp: base.Add(-24 * time.Hour), MealType: types.MealBreakfast,
			Calories: "300", SystolicBP: intPtr(118), BowelScore: "4"},
	}
	analyses := []engine.Analysis{
		{Combo: engine.ComboResult{Safe: false, Warning: strPtr(engine.WarningCombination)}},
		{Combo: engine.ComboResult{Safe: true}},
	}
	return entries, analyses
}

func TestBuild(t *testing.T) {
	entries, analyses := sampleEntries()
	exported := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	rep, err := Build(entries, analyses, exported)
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(rep.Rows))
	}
	first, second := rep.Rows[0], rep.Rows[1]
	if first.Food != "Oatmeal" || second.Food != "Cheeseburger" {
		t.Errorf("rows not sorted by date: %q, %q", first.Food, second.Food)
	}
	if first.BloodPressure != "118" || first.Calories != "300" || first.FeltSick != "No" || first.Verdict != VerdictSafe {
		t.Errorf("first row = %+v", first)
	}
	if second.Calories != NotRecorded || second.BloodPressure != NotRecorded || second.BowelScore != NotRecorded {
		t.Errorf("empty fields should read %q: %+v", NotRecorded, second)
	}
	if second.FeltSick != "Yes" || second.Verdict != engine.WarningCombination {
		t.Errorf("second row = %+v", second)
	}

	want := Summary{TotalEntries: 2, SickEpisodes: 1, DateRange: "2024-03-01 to 2024-03-02", ExportDate: "2024-03-05"}
	if rep.Summary != want {
		t.Errorf("Summary = %+v, want %+v", rep.Summary, want)
	}
}

func TestBuild_NoEntries(t *testing.T) {
	if _, err := Build(nil, nil, time.Now()); !errors.Is(err, ErrNoEntries) {
		t.Errorf("err = %v, want ErrNoEntries", err)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	plaintext := []byte(`{"hello":"world"}`)

	envelope, err := Encrypt(plaintext, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(envelope, "hello") {
		t.Error("envelope leaks plaintext")
	}

	got, err := Decrypt(envelope, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}

	again, err := Encrypt(plaintext, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if again == envelope {
		t.Error("envelopes should differ by salt and nonce")
	}
}

func TestDecrypt_Failures(t *testing.T) {
	envelope, err := Encrypt([]byte("data"), "right")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		envelope string
		password string
	}{
		{"wrong password", envelope, "wrong"},
		{"not base64", "!!!", "right"},
		{"too short", "AAAA", "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decrypt(tt.envelope, tt.password); !errors.Is(err, ErrDecrypt) {
				t.Errorf("err = %v, want ErrDecrypt", err)
			}
		})
	}
}

func TestEncrypt_EmptyPassword(t *testing.T) {
	if _, err := Encrypt([]byte("data"), ""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("err = %v, want ErrEmptyPassword", err)
	}
}

func TestSealOpen(t *testing.T) {
	entries, analyses := sampleEntries()
	rep, err := Build(entries, analyses, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	envelope, err := Seal(rep, "pw")
	if err != nil {
		t.Fatal(err)
	}
	opened, err := Open(envelope, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if opened.Summary != rep.Summary || len(opened.Rows) != len(rep.Rows) || opened.Rows[1] != rep.Rows[1] {
		t.Errorf("Open(Seal(r)) = %+v, want %+v", opened, rep)
	}
}

func TestRenderHTML(t *testing.T) {
	entries, analyses := sampleEntries()
	rep, err := Build(entries, analyses, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	page, err := RenderHTML(rep, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)

	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Error("page should start with a doctype")
	}
	if strings.Contains(html, "hunter2") {
		t.Error("page must not contain the password")
	}
	if strings.Contains(html, "Cheeseburger") {
		t.Error("page must not contain plaintext entries")
	}
	for _, want := range []string{"crypto.subtle.decrypt", "exported 2024-03-05", "const envelope = \""} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	entries, analyses := sampleEntries()
	rep, err := Build(entries, analyses, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	if records[0][0] != "Date" || records[1][1] != "Oatmeal" || records[2][8] != engine.WarningCombination {
		t.Errorf("unexpected records: %v", records)
	}
}
