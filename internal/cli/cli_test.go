package cli

import "testing"

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()

	args, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.URL != "" || args.Listen != "" || args.Backend != "" || args.Refresh {
		t.Errorf("defaults: %+v", args)
	}
}

func TestParseArgsOneShot(t *testing.T) {
	t.Parallel()

	args, err := ParseArgs([]string{"-url", "example.com", "-refresh", "-backend", "chromedp"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.URL != "example.com" {
		t.Errorf("url = %q", args.URL)
	}
	if !args.Refresh {
		t.Error("refresh not set")
	}
	if args.Backend != "chromedp" {
		t.Errorf("backend = %q", args.Backend)
	}
}

func TestParseArgsRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := ParseArgs([]string{"-backend", "curl"}); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	t.Parallel()

	if _, err := ParseArgs([]string{"-definitely-not-a-flag"}); err == nil {
		t.Fatal("unknown flag accepted")
	}
}
