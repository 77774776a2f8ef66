package loader

import (
	"testing"

	"github.com/spf13/viper"
)

func TestGetenvOrDefaultUsesDefaultWhenUnset(t *testing.T) {
	t.Setenv("CDL_TEST_UNSET_VALUE", "")
	if got := getenvOrDefault("CDL_TEST_UNSET_VALUE", ":8080"); got != ":8080" {
		t.Errorf("getenvOrDefault() = %q, want :8080", got)
	}
}

func TestGetenvOrDefaultPrefersSetValue(t *testing.T) {
	t.Setenv("CDL_TEST_SET_VALUE", ":9090")
	if got := getenvOrDefault("CDL_TEST_SET_VALUE", ":8080"); got != ":9090" {
		t.Errorf("getenvOrDefault() = %q, want :9090", got)
	}
}

func TestMustGetStringReturnsPresentValue(t *testing.T) {
	v := viper.New()
	v.Set("database.url", "postgres://localhost/cdl")
	if got := mustGetString(v, "database.url"); got != "postgres://localhost/cdl" {
		t.Errorf("mustGetString() = %q", got)
	}
}
