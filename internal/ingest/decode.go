package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// columnAliases maps known header names, including the Korean headers from
// the original campaign spreadsheets, to canonical Record fields.
var columnAliases = map[string]string{
	"team_id":         "team_id",
	"team_name":       "team_name",
	"team":            "team_name",
	"팀":               "team_name",
	"channel":         "channel",
	"채널":              "channel",
	"title":           "title",
	"메세지(제목)":         "title",
	"메시지(제목)":         "title",
	"message":         "message",
	"메세지(내용)":         "message",
	"메시지(내용)":         "message",
	"내용":              "message",
	"content":         "content",
	"button":          "button",
	"button_name":     "button",
	"버튼명":             "button",
	"keywords":        "keywords",
	"키워드":             "keywords",
	"target_audience": "target_audience",
	"타겟":              "target_audience",
	"tone":            "tone",
	"reference_text":  "reference_text",
	"send_date":       "send_date",
	"발송일자":            "send_date",
	"발송일":             "send_date",
	"impression_count": "impression_count",
	"발송통수(성공)":        "impression_count",
	"발송성공수":           "impression_count",
	"click_count":     "click_count",
	"오픈수":             "click_count",
	"클릭 수":            "click_count",
	"ctr":             "ctr",
	"오픈율 (%)":         "ctr",
	"유입율":             "ctr",
	"conversion_count": "conversion_count",
	"구매자수":            "conversion_count",
	"conversion_rate": "conversion_rate",
	"구매전환율 (%)":       "conversion_rate",
	"구매전환율":           "conversion_rate",
	"trend_keywords":  "trend_keywords",
}

// DecodeFile decodes an ingestion file into raw records by extension:
// .json expects an array of records, .csv a header row plus data rows.
// skipped counts CSV rows dropped for structural problems.
func DecodeFile(name string, data []byte) (records []Record, skipped int, err error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, 0, fmt.Errorf("decoding %s: %w", name, err)
		}
		return records, 0, nil
	case ".csv":
		return DecodeCSV(strings.NewReader(string(data)))
	default:
		return nil, 0, fmt.Errorf("unsupported ingestion format %q", filepath.Ext(name))
	}
}

// DecodeCSV reads header-addressed rows. Unknown columns are ignored; a row
// with the wrong field count is skipped and counted, never fatal.
func DecodeCSV(r io.Reader) (records []Record, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading csv header: %w", err)
	}
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = columnAliases[strings.TrimSpace(h)]
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(row) != len(fields) {
			skipped++
			continue
		}
		records = append(records, recordFromRow(fields, row))
	}
	return records, skipped, nil
}

func recordFromRow(fields, row []string) Record {
	var rec Record
	for i, field := range fields {
		v := strings.TrimSpace(row[i])
		switch field {
		case "team_id":
			rec.TeamID = parseCount(v)
		case "team_name":
			rec.TeamName = v
		case "channel":
			rec.Channel = v
		case "title":
			rec.Title = v
		case "message":
			rec.Message = v
		case "content":
			rec.Content = v
		case "button":
			rec.Button = v
		case "keywords":
			rec.Keywords = v
		case "target_audience":
			rec.TargetAudience = v
		case "tone":
			rec.Tone = v
		case "reference_text":
			rec.ReferenceText = v
		case "send_date":
			rec.SendDate = v
		case "impression_count":
			rec.ImpressionCount = parseCount(v)
		case "click_count":
			rec.ClickCount = parseCount(v)
		case "ctr":
			rec.CTR = Ratio(parseRatioString(v))
		case "conversion_count":
			rec.ConversionCount = parseCount(v)
		case "conversion_rate":
			rec.ConversionRate = Ratio(parseRatioString(v))
		case "trend_keywords":
			rec.TrendKeywords = v
		}
	}
	return rec
}
