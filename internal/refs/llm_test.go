package refs

import "testing"

func TestParseLLMOutput(t *testing.T) {
	content := `
ГОСТ; 12.1.004-91; 01.01.1992
Приказ; 897/пр;
Постановление; 87; 16.02.2008

непонятная строка
Закон; 44-ФЗ
`

	refs := parseLLMOutput(content)

	if len(refs) != 4 {
		t.Fatalf("parseLLMOutput() = %d references, want 4: %+v", len(refs), refs)
	}

	tests := []struct {
		idx    int
		typ    string
		number string
		date   string
	}{
		{0, "ГОСТ", "12.1.004-91", "01.01.1992"},
		{1, "Приказ", "897/пр", ""},
		{2, "Постановление", "87", "16.02.2008"},
		{3, "Закон", "44-ФЗ", ""},
	}

	for _, tt := range tests {
		ref := refs[tt.idx]
		if ref.Type != tt.typ || ref.Number != tt.number || ref.Date != tt.date {
			t.Errorf("ref %d = %+v, want {%s %s %s}", tt.idx, ref, tt.typ, tt.number, tt.date)
		}
	}
}

func TestParseLLMOutputEmpty(t *testing.T) {
	if refs := parseLLMOutput("   \n  \n"); len(refs) != 0 {
		t.Errorf("parseLLMOutput() on blank input = %d references, want 0", len(refs))
	}
}
