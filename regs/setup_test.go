package regs

import "testing"

func TestProgramHashDeterministic(t *testing.T) {
	a := &ShaderSetup{ProgramCode: []uint32{0x4E000000, 0x08020140, 0x88000000}}
	b := &ShaderSetup{ProgramCode: []uint32{0x4E000000, 0x08020140, 0x88000000}}

	if a.ProgramHash() != b.ProgramHash() {
		t.Error("identical program code must hash identically")
	}
}

func TestProgramHashSensitivity(t *testing.T) {
	a := &ShaderSetup{ProgramCode: []uint32{0x4E000000, 0x08020140}}
	b := &ShaderSetup{ProgramCode: []uint32{0x4E000000, 0x08020141}}

	if a.ProgramHash() == b.ProgramHash() {
		t.Error("differing program code should hash differently")
	}
}

func TestProgramAndSwizzleHashesIndependent(t *testing.T) {
	s := &ShaderSetup{
		ProgramCode: []uint32{1, 2, 3},
		SwizzleData: []uint32{4, 5, 6},
	}

	if s.ProgramHash() == s.SwizzleHash() {
		t.Error("program and swizzle hashes should differ for differing content")
	}
}

func TestHashWordsEmpty(t *testing.T) {
	var s ShaderSetup
	// Empty program is a valid state before the first upload; the hash must
	// still be stable.
	if s.ProgramHash() != (&ShaderSetup{}).ProgramHash() {
		t.Error("empty program hash must be stable")
	}
}

func TestTexUnitEnabled(t *testing.T) {
	if (TexUnit{}).Enabled() {
		t.Error("zero-value texture unit should be disabled")
	}
	if !(TexUnit{Type: Tex2D}).Enabled() {
		t.Error("2D texture unit should be enabled")
	}
}
