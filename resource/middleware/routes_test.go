package middleware

import "testing"

func mustCompile(t *testing.T, rules []RouteRule) []compiledRule {
	t.Helper()
	compiled, err := compileRules(rules)
	if err != nil {
		t.Fatalf("Failed to compile rules: %v", err)
	}
	return compiled
}

func TestRouteSpecificity(t *testing.T) {
	rules := mustCompile(t, []RouteRule{
		{Pattern: "/a/*", Price: "10000000"},
		{Pattern: "/a/b", Price: "20000000"},
	})

	match := matchRule(rules, "GET", "/a/b")
	if match == nil {
		t.Fatal("Expected a match for /a/b")
	}
	if match.amount != "20000000" {
		t.Errorf("Expected the exact rule to win, got amount %s", match.amount)
	}

	match = matchRule(rules, "GET", "/a/c")
	if match == nil {
		t.Fatal("Expected a match for /a/c")
	}
	if match.amount != "10000000" {
		t.Errorf("Expected the glob rule, got amount %s", match.amount)
	}
}

func TestSpecificityIgnoresPlaceholderExpansion(t *testing.T) {
	// A wildcard or parameter matches anything, so it must never outrank
	// a literal segment, whatever its compiled form looks like.
	rules := mustCompile(t, []RouteRule{
		{Pattern: "/reports/[id]", Price: "1"},
		{Pattern: "/reports/daily", Price: "2"},
		{Pattern: "/reports/*", Price: "3"},
	})

	match := matchRule(rules, "GET", "/reports/daily")
	if match == nil {
		t.Fatal("Expected a match for /reports/daily")
	}
	if match.amount != "2" {
		t.Errorf("Expected the literal rule to win, got amount %s", match.amount)
	}

	match = matchRule(rules, "GET", "/reports/42")
	if match == nil {
		t.Fatal("Expected a match for /reports/42")
	}
	if match.amount != "1" {
		t.Errorf("Expected the parameter rule to win over the glob, got amount %s", match.amount)
	}
}

func TestPathNormalization(t *testing.T) {
	rules := mustCompile(t, []RouteRule{
		{Pattern: "/x/y", Price: "1"},
	})

	for _, path := range []string{"/x/y", "/x//y/", "/x/y?q=1", "/x///y"} {
		if matchRule(rules, "GET", path) == nil {
			t.Errorf("Expected %q to match /x/y", path)
		}
	}

	if matchRule(rules, "GET", "/x/z") != nil {
		t.Error("Expected /x/z not to match")
	}
}

func TestParamPattern(t *testing.T) {
	rules := mustCompile(t, []RouteRule{
		{Pattern: "/reports/[id]/raw", Price: "1"},
	})

	if matchRule(rules, "GET", "/reports/42/raw") == nil {
		t.Error("Expected /reports/42/raw to match")
	}
	if matchRule(rules, "GET", "/reports/42/extra/raw") != nil {
		t.Error("Parameter must not span path segments")
	}
	if matchRule(rules, "GET", "/reports//raw") != nil {
		t.Error("Parameter must not match an empty segment")
	}
}

func TestVerbMatching(t *testing.T) {
	rules := mustCompile(t, []RouteRule{
		{Pattern: "POST /submit", Price: "1"},
		{Pattern: "/open", Price: "2"},
	})

	if matchRule(rules, "POST", "/submit") == nil {
		t.Error("Expected POST /submit to match")
	}
	if matchRule(rules, "GET", "/submit") != nil {
		t.Error("GET must not match a POST-only rule")
	}
	if matchRule(rules, "DELETE", "/open") == nil {
		t.Error("Verbless rules must match every verb")
	}
}

func TestRegexMetacharactersAreLiteral(t *testing.T) {
	rules := mustCompile(t, []RouteRule{
		{Pattern: "/v1.0/data", Price: "1"},
	})

	if matchRule(rules, "GET", "/v1.0/data") == nil {
		t.Error("Expected literal dot to match")
	}
	if matchRule(rules, "GET", "/v1x0/data") != nil {
		t.Error("Dot must not act as a regex wildcard")
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/x//y/":  "/x/y",
		"/x/y":    "/x/y",
		"/x/y?q=": "/x/y",
		"/":       "/",
		"":        "/",
	}
	for input, expected := range cases {
		if got := normalizePath(input); got != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", input, got, expected)
		}
	}
}
