package bypass

import "testing"

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		html       string
		wantHit    bool
		wantSource string
	}{
		{
			name:       "captcha widget",
			status:     200,
			html:       `<html><div class="g-recaptcha" data-sitekey="x"></div></html>`,
			wantHit:    true,
			wantSource: "captcha",
		},
		{
			name:       "unusual traffic interstitial",
			status:     200,
			html:       `<html>Our systems have detected unusual traffic from your computer network.</html>`,
			wantHit:    true,
			wantSource: "unusual-traffic",
		},
		{
			name:       "robot check",
			status:     200,
			html:       `<html>please confirm you're not a robot</html>`,
			wantHit:    true,
			wantSource: "unusual-traffic",
		},
		{
			name:       "429 without body signature",
			status:     429,
			html:       `<html>slow down</html>`,
			wantHit:    true,
			wantSource: "status",
		},
		{
			name:       "503 without body signature",
			status:     503,
			html:       ``,
			wantHit:    true,
			wantSource: "status",
		},
		{
			name:    "ordinary result page",
			status:  200,
			html:    `<html><div class="g"><a href="https://linkedin.com/in/someone">hit</a></div></html>`,
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, source := Analyze(tt.status, tt.html, DefaultDetectors())
			if hit != tt.wantHit {
				t.Fatalf("Analyze detected=%v, want %v", hit, tt.wantHit)
			}
			if hit && source != tt.wantSource {
				t.Errorf("Analyze source=%q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestAnalyzeNoDetectors(t *testing.T) {
	if hit, _ := Analyze(403, "blocked", nil); hit {
		t.Errorf("Analyze with no detectors should not detect")
	}
}
