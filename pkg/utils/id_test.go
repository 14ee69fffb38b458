package utils

import (
	"strings"
	"testing"
)

func TestGenerateRunID(t *testing.T) {
	a := GenerateRunID()
	b := GenerateRunID()
	if !strings.HasPrefix(a, "run-") {
		t.Errorf("expected run- prefix, got %s", a)
	}
	// run-YYYYMMDD-HHMMSS-xxxxxxxx
	if len(a) != len("run-20060102-150405-")+8 {
		t.Errorf("unexpected run id length: %s", a)
	}
	if a == b {
		t.Errorf("expected unique run ids, got %s twice", a)
	}
}

func TestGenerateID(t *testing.T) {
	if len(GenerateID()) != 36 {
		t.Error("expected canonical uuid string")
	}
}
