package toolcall

import "testing"

func TestExtractXMLToolCallsNoBlocks(t *testing.T) {
	calls, cleaned := extractXMLToolCalls("just plain text")
	if calls != nil {
		t.Fatalf("calls = %+v, want nil", calls)
	}
	if cleaned != "just plain text" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestExtractXMLToolCallsSingleBlock(t *testing.T) {
	content := `Let me check that file.
<tool_call>read_file<arg_key>path</arg_key><arg_value>main.go</arg_value><arg_key>start_line</arg_key><arg_value>1</arg_value></tool_call>
Done.`

	calls, cleaned := extractXMLToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(calls))
	}
	if calls[0].Name != "read_file" {
		t.Fatalf("Name = %q", calls[0].Name)
	}
	if calls[0].Arguments != `{"path":"main.go","start_line":1}` {
		t.Fatalf("Arguments = %q", calls[0].Arguments)
	}
	if cleaned == content {
		t.Fatal("expected XML block to be stripped from content")
	}
}

func TestExtractXMLToolCallsMultipleBlocksAndTypes(t *testing.T) {
	content := `<tool_call>foo<arg_key>n</arg_key><arg_value>42</arg_value><arg_key>ok</arg_key><arg_value>true</arg_value></tool_call><tool_call>bar<arg_key>s</arg_key><arg_value>hi</arg_value></tool_call>`

	calls, _ := extractXMLToolCalls(content)
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
	if calls[0].Arguments != `{"n":42,"ok":true}` {
		t.Fatalf("calls[0].Arguments = %q", calls[0].Arguments)
	}
	if calls[1].Arguments != `{"s":"hi"}` {
		t.Fatalf("calls[1].Arguments = %q", calls[1].Arguments)
	}
}

func TestSynthesizeIDsSequential(t *testing.T) {
	calls := []extractedCall{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	out := synthesizeIDs(calls)
	for i, tc := range out {
		want := "call_" + string(rune('0'+i))
		if tc.ID != want {
			t.Errorf("out[%d].ID = %q, want %q", i, tc.ID, want)
		}
	}
}
