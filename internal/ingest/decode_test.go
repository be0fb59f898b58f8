package ingest

import (
	"strings"
	"testing"
)

func TestDecodeCSV_KoreanHeaders(t *testing.T) {
	csvData := strings.Join([]string{
		"팀,채널,메세지(제목),메세지(내용),발송일자,발송통수(성공),오픈수,오픈율 (%),구매자수,구매전환율 (%)",
		"패션팀,APP_PUSH,가을 세일,최대 50% 할인,25.08.01,\"12,000\",840,7.0,120,1.0",
	}, "\n")

	records, skipped, err := DecodeCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	rec := records[0]
	if rec.TeamName != "패션팀" || rec.Channel != "APP_PUSH" {
		t.Errorf("record = %+v, want team/channel mapped", rec)
	}
	if rec.Title != "가을 세일" || rec.Message != "최대 50% 할인" {
		t.Errorf("title/message = %q/%q", rec.Title, rec.Message)
	}
	if rec.ImpressionCount != 12000 {
		t.Errorf("ImpressionCount = %d, want 12000", rec.ImpressionCount)
	}
	// Percent-to-ratio conversion happens in Normalize, not here.
	if rec.CTR != 7.0 {
		t.Errorf("CTR = %v, want raw 7.0", rec.CTR)
	}
	if rec.SendDate != "25.08.01" {
		t.Errorf("SendDate = %q, raw value expected before Normalize", rec.SendDate)
	}
}

func TestDecodeCSV_SkipsMalformedRows(t *testing.T) {
	csvData := strings.Join([]string{
		"team_id,channel,message",
		"1,RCS,정상 행",
		"2,RCS",
		"3,APP_PUSH,또 다른 정상 행",
	}, "\n")

	records, skipped, err := DecodeCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestDecodeFile_JSON(t *testing.T) {
	data := `[{"team_id":1,"channel":"RCS","message":"m","ctr":"5%"}]`

	records, skipped, err := DecodeFile("batch.json", []byte(data))
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if skipped != 0 || len(records) != 1 {
		t.Fatalf("records = %d skipped = %d, want 1/0", len(records), skipped)
	}
	if records[0].CTR != 0.05 {
		t.Errorf("CTR = %v, want 0.05", records[0].CTR)
	}
}

func TestDecodeFile_UnsupportedExtension(t *testing.T) {
	if _, _, err := DecodeFile("batch.xlsx", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
