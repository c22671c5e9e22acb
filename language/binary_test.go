package language

import "testing"

func Test_IsBinaryContent_SourceFile(t *testing.T) {
	content := []byte("def main():\n    return 0\n")
	if IsBinaryContent(content) {
		t.Error("expected source content to not be detected as binary")
	}
}

func Test_IsBinaryContent_BinaryFile(t *testing.T) {
	content := []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0x00} // ELF header with null byte
	if !IsBinaryContent(content) {
		t.Error("expected binary content to be detected as binary")
	}
}

func Test_IsBinaryContent_EmptyFile(t *testing.T) {
	if IsBinaryContent(nil) {
		t.Error("expected empty content to not be detected as binary")
	}
}

func Test_IsBinaryContent_NullAfterSniffWindow(t *testing.T) {
	content := make([]byte, sniffSize+10)
	for i := range content {
		content[i] = 'a'
	}
	content[sniffSize+5] = 0x00
	if IsBinaryContent(content) {
		t.Error("expected null byte outside the sniff window to be ignored")
	}
}
