package handle

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"@ali":       "ali",
		"ALI":        "ali",
		"  @Ali  ":   "ali",
		"ali":        "ali",
		"@@ali":      "ali",
		"@ ali":      "ali",
		"":           "",
		"@":          "",
		"  ":         "",
		"Dev_Team42": "dev_team42",
		"@سارة":      "سارة",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("ali") {
		t.Error("ali should be valid")
	}
	for _, k := range []string{"", "Ali", "@ali", " ali"} {
		if Valid(k) {
			t.Errorf("Valid(%q) = true, want false", k)
		}
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{"@ali", "@@ALI", " @ @x ", "İstanbul", "\t@Dev\n", "ẞ"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	})
}
