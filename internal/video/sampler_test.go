package video

import "testing"

func TestSamplingInterval(t *testing.T) {
	tests := []struct {
		name      string
		fps       float64
		frameRate int
		expected  int
	}{
		{name: "30fps at 5/s", fps: 30, frameRate: 5, expected: 6},
		{name: "30fps at 10/s", fps: 30, frameRate: 10, expected: 3},
		{name: "25fps at 10/s truncates", fps: 25, frameRate: 10, expected: 2},
		{name: "24fps at 30/s clamps to every frame", fps: 24, frameRate: 30, expected: 1},
		{name: "60fps at 1/s", fps: 60, frameRate: 1, expected: 60},
		{name: "ntsc 29.97fps at 5/s", fps: 30000.0 / 1001.0, frameRate: 5, expected: 5},
		{name: "zero rate falls back to every frame", fps: 30, frameRate: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SamplingInterval(tt.fps, tt.frameRate)
			if got != tt.expected {
				t.Errorf("SamplingInterval(%v, %d) = %d, want %d", tt.fps, tt.frameRate, got, tt.expected)
			}
		})
	}
}

func TestSampledFrameCount(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		interval int
		expected int
	}{
		{name: "exact multiple", total: 300, interval: 6, expected: 50},
		{name: "rounds up", total: 301, interval: 6, expected: 51},
		{name: "every frame", total: 10, interval: 1, expected: 10},
		{name: "interval beyond total", total: 3, interval: 10, expected: 1},
		{name: "empty video", total: 0, interval: 6, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampledFrameCount(tt.total, tt.interval)
			if got != tt.expected {
				t.Errorf("SampledFrameCount(%d, %d) = %d, want %d", tt.total, tt.interval, got, tt.expected)
			}
		})
	}
}

func TestIsSampledMatchesCount(t *testing.T) {
	// Every combination must agree: counting sampled indices one by one
	// gives the same number SampledFrameCount predicts.
	for _, total := range []int{1, 7, 30, 299, 300, 301} {
		for _, interval := range []int{1, 2, 6, 30} {
			count := 0
			for i := 0; i < total; i++ {
				if IsSampled(i, interval) {
					count++
				}
			}
			if expected := SampledFrameCount(total, interval); count != expected {
				t.Errorf("total=%d interval=%d: counted %d sampled frames, want %d",
					total, interval, count, expected)
			}
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		rate     string
		expected float64
		wantErr  bool
	}{
		{rate: "30/1", expected: 30},
		{rate: "30000/1001", expected: 30000.0 / 1001.0},
		{rate: "25", expected: 25},
		{rate: "0/0", wantErr: true},
		{rate: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			got, err := parseFrameRate(tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.rate)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("parseFrameRate(%q) = %v, want %v", tt.rate, got, tt.expected)
			}
		})
	}
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		scheme   LocatorScheme
		target   string
		wantErr  bool
	}{
		{name: "http url", raw: "http://example.com/match.mp4", scheme: SchemeHTTP, target: "http://example.com/match.mp4"},
		{name: "https url", raw: "https://example.com/match.mp4", scheme: SchemeHTTPS, target: "https://example.com/match.mp4"},
		{name: "storage key", raw: "storage://matches/final.mp4", scheme: SchemeStorage, target: "matches/final.mp4"},
		{name: "file url", raw: "file:///videos/a.mp4", scheme: SchemeFile, target: "/videos/a.mp4"},
		{name: "bare path", raw: "/videos/a.mp4", scheme: SchemeFile, target: "/videos/a.mp4"},
		{name: "empty", raw: "", wantErr: true},
		{name: "empty storage key", raw: "storage://", wantErr: true},
		{name: "unknown scheme", raw: "ftp://example.com/a.mp4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocator(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loc.Scheme != tt.scheme {
				t.Errorf("scheme = %q, want %q", loc.Scheme, tt.scheme)
			}
			if loc.Target != tt.target {
				t.Errorf("target = %q, want %q", loc.Target, tt.target)
			}
		})
	}
}
