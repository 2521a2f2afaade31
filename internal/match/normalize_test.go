package match

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Midnight City", "Midnight City"},
		{"original mix", "Strobe (Original Mix)", "Strobe"},
		{"extended mix", "Opus [Extended Mix]", "Opus"},
		{"radio edit", "Greyhound (Radio Edit)", "Greyhound"},
		{"club mix", "Satisfaction (Club Mix)", "Satisfaction"},
		{"bare edit", "One (Edit)", "One"},
		{"remaster suffix", "Kid A - Remastered 2021", "Kid A"},
		{"remaster brackets", "Kid A (Remastered)", "Kid A"},
		{"feat paren", "Latch (feat. Sam Smith)", "Latch"},
		{"ft dot", "Lean On ft. MO", "Lean On"},
		{"premiere prefix", "PREMIERE: Tale Of Us - Nova", "Tale Of Us - Nova"},
		{"free download prefix", "Free Download: Secret Weapon", "Secret Weapon"},
		{"trailing label", "Contact [Anjunabeats]", "Contact"},
		{"trailing out now", "Animals (OUT NOW)", "Animals"},
		{"keeps live", "One More Time (Live)", "One More Time (Live)"},
		{"keeps remix context", "Around The World (Daft Punk Remix)", "Around The World (Daft Punk Remix)"},
		{"ft inside word", "Left Of The Dial", "Left Of The Dial"},
		{"ft ending a word", "Soft Cell Anthem", "Soft Cell Anthem"},
		{"ft mid word", "Drift Away", "Drift Away"},
		{"feat inside word", "Defeat Of A Giant", "Defeat Of A Giant"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CleanTitle(test.title); got != test.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", test.title, got, test.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"lowercases", "Midnight City", "midnight city"},
		{"strips punctuation", "Song! (Live)", "song live"},
		{"collapses whitespace", "  So   Much   Space  ", "so much space"},
		{"empty", "", ""},
		{"only noise", "(Original Mix)", ""},
		{"unicode letters kept", "Déjà Vu", "déjà vu"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Normalize(test.title); got != test.want {
				t.Errorf("Normalize(%q) = %q, want %q", test.title, got, test.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	titles := []string{
		"PREMIERE: Artist - Song (Original Mix) [Label]",
		"Latch (feat. Sam Smith)",
		"Kid A - Remastered 2021",
	}
	for _, title := range titles {
		once := Normalize(title)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", title, once, twice)
		}
	}
}

func TestNormalizeArtist(t *testing.T) {
	tests := []struct {
		artist string
		want   string
	}{
		{"Daft Punk", "daft punk"},
		{"MØ", "mø"},
		{"Duke Dumont feat. AME", "duke dumont"},
		{"A$AP Rocky", "a ap rocky"},
		{"Soft Cell", "soft cell"},
	}
	for _, test := range tests {
		if got := NormalizeArtist(test.artist); got != test.want {
			t.Errorf("NormalizeArtist(%q) = %q, want %q", test.artist, got, test.want)
		}
	}
}

func TestTokenSort(t *testing.T) {
	if got := TokenSort("city midnight"); got != "city midnight" {
		t.Errorf("TokenSort already sorted = %q", got)
	}
	if got := TokenSort("midnight city"); got != "city midnight" {
		t.Errorf("TokenSort(%q) = %q", "midnight city", got)
	}
	if got := TokenSort(""); got != "" {
		t.Errorf("TokenSort empty = %q", got)
	}
}

func TestSplitArtistTitle(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		artist string
		track  string
		ok     bool
	}{
		{"hyphen", "Tale Of Us - Nova", "Tale Of Us", "Nova", true},
		{"en dash", "Bicep – Glue", "Bicep", "Glue", true},
		{"no separator", "Nova", "", "", false},
		{"leading separator", " - Nova", "", "", false},
		{"hyphen without spaces", "T-Shirt Weather", "", "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			artist, track, ok := SplitArtistTitle(test.title)
			if ok != test.ok || artist != test.artist || track != test.track {
				t.Errorf("SplitArtistTitle(%q) = (%q, %q, %v), want (%q, %q, %v)",
					test.title, artist, track, ok, test.artist, test.track, test.ok)
			}
		})
	}
}
