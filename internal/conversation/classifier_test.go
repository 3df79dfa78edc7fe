package conversation

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Classification
	}{
		{"plain number", "120", ClassificationReading},
		{"decimal number", "95.5", ClassificationReading},
		{"number with unit", "血糖 120 mg/dL", ClassificationReading},
		{"glucose keyword without digits", "我想記錄血糖", ClassificationReading},
		{"fullwidth text with ascii digit", "早上量了7次", ClassificationReading},
		{"report keyword", "報表", ClassificationSummary},
		{"chart keyword", "圖表", ClassificationSummary},
		{"report keyword in sentence", "給我看報表", ClassificationSummary},
		{"report wins over glucose keyword", "血糖報表", ClassificationSummary},
		{"report wins over digits", "最近7天的圖表", ClassificationSummary},
		{"free text", "你好", ClassificationUnclassified},
		{"empty", "", ClassificationUnclassified},
		{"health question", "飯後多久量比較準？", ClassificationUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
