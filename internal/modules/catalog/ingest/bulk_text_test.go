package ingest

import (
	"reflect"
	"testing"
)

func TestParseBulkTextExample(t *testing.T) {
	res := ParseBulkText("RIGID COUPLINGS:\n1/2\": 111\n3/4\": 222\n\nELBOWS:\n90DEG: 333\n")

	if len(res.Items) != 2 {
		t.Fatalf("items: want=2 got=%d", len(res.Items))
	}
	if res.Items[0].Name != "RIGID COUPLINGS" || res.Items[1].Name != "ELBOWS" {
		t.Fatalf("names: got=%q,%q", res.Items[0].Name, res.Items[1].Name)
	}
	want0 := []Configuration{{Size: `1/2"`, ID: "111"}, {Size: `3/4"`, ID: "222"}}
	if !reflect.DeepEqual(res.Items[0].Configurations, want0) {
		t.Fatalf("first item: want=%v got=%v", want0, res.Items[0].Configurations)
	}
	want1 := []Configuration{{Size: "90DEG", ID: "333"}}
	if !reflect.DeepEqual(res.Items[1].Configurations, want1) {
		t.Fatalf("second item: want=%v got=%v", want1, res.Items[1].Configurations)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("skipped: want none got=%v", res.Skipped)
	}
}

func TestParseBulkTextReportsDroppedLines(t *testing.T) {
	text := "1\": orphan\nTEES:\n  this line has no colon\n2\":\n : 555\n1\": 444:extra\r\nlowercase header:\n"
	res := ParseBulkText(text)

	if len(res.Items) != 1 {
		t.Fatalf("items: want=1 got=%d", len(res.Items))
	}
	// Split is on the first colon only, and the lowercase line is a config line with an empty id.
	want := []Configuration{{Size: `1"`, ID: "444:extra"}}
	if !reflect.DeepEqual(res.Items[0].Configurations, want) {
		t.Fatalf("configurations: want=%v got=%v", want, res.Items[0].Configurations)
	}

	reasons := map[int]string{}
	for _, s := range res.Skipped {
		reasons[s.Line] = s.Reason
	}
	wantReasons := map[int]string{
		1: SkipNoItemHeader,
		3: SkipNoColon,
		4: SkipEmptyField,
		5: SkipEmptyField,
		7: SkipEmptyField,
	}
	if !reflect.DeepEqual(reasons, wantReasons) {
		t.Fatalf("reasons: want=%v got=%v", wantReasons, reasons)
	}
}

func TestParseBulkTextKeepsEmptyItems(t *testing.T) {
	res := ParseBulkText("FLANGES:\nVALVES:\n1\": 9\n")
	if len(res.Items) != 2 {
		t.Fatalf("items: want=2 got=%d", len(res.Items))
	}
	if len(res.Items[0].Configurations) != 0 || len(res.Items[1].Configurations) != 1 {
		t.Fatalf("configurations: got=%v / %v", res.Items[0].Configurations, res.Items[1].Configurations)
	}
}

func TestBulkInputs(t *testing.T) {
	res := ParseBulkText("RIGID COUPLINGS:\n1/2\": 111\n3/4\": 222\n")

	inputs := res.Inputs(BulkShared{Properties: " galvanized ", AlternateNames: "coupler", SpecialNotes: ""})
	if len(inputs) != 2 {
		t.Fatalf("inputs: want=2 got=%d", len(inputs))
	}
	first := inputs[0]
	if first.Name != "RIGID COUPLINGS" || first.GBID != "111" {
		t.Fatalf("first input: got=%+v", first)
	}
	if first.Properties != `1/2"; galvanized` {
		t.Fatalf("properties: want=%q got=%q", `1/2"; galvanized`, first.Properties)
	}
	if first.AlternateNames != "coupler" {
		t.Fatalf("alternate names: got=%q", first.AlternateNames)
	}
	if inputs[1].GBID != "222" {
		t.Fatalf("second gbid: got=%q", inputs[1].GBID)
	}

	plain := res.Inputs(BulkShared{})
	if plain[0].Properties != `1/2"` {
		t.Fatalf("properties without shared: got=%q", plain[0].Properties)
	}
}
