package progresscookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granada-os/personalization/internal/domain/onboarding"
)

func sampleProgress(savedAt time.Time) onboarding.Progress {
	return onboarding.Progress{
		CurrentStep: "EMAIL",
		UserProfile: onboarding.ProgressProfile{
			FirstName: "Amani",
			LastName:  "Wanjiru; \"quoted\", spaced",
			UserType:  onboarding.UserTypeStudent,
		},
		UserLocation: &onboarding.ProgressLocation{Country: "Kenya", CountryCode: "KE", Continent: "Africa", Timezone: "Africa/Nairobi"},
		Timestamp:    savedAt.UnixMilli(),
	}
}

func TestCodec_RoundTripWithinWindow(t *testing.T) {
	t.Parallel()

	savedAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	codec := NewCodec(Config{})
	want := sampleProgress(savedAt)

	cookie, err := codec.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.NotContains(t, cookie.Value, ";")
	assert.NotContains(t, cookie.Value, " ")

	for _, age := range []time.Duration{0, time.Hour, onboarding.ProgressMaxAge - time.Millisecond} {
		got, err := codec.Decode(cookie.Value, savedAt.Add(age))
		require.NoError(t, err, "age %s", age)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("decoded progress mismatch at age %s (-want +got):\n%s", age, diff)
		}
	}
}

func TestCodec_DecodeRejectsStaleAndMalformed(t *testing.T) {
	t.Parallel()

	savedAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	codec := NewCodec(Config{})
	cookie, err := codec.Encode(sampleProgress(savedAt))
	require.NoError(t, err)

	_, err = codec.Decode(cookie.Value, savedAt.Add(onboarding.ProgressMaxAge))
	require.ErrorIs(t, err, onboarding.ErrProgressExpired)

	for _, value := range []string{"", "%zz", "not-json", "%7B%7D"} {
		_, err := codec.Decode(value, savedAt)
		assert.Error(t, err, "value %q", value)
	}
}

func TestCodec_EncodeRejectsOversizedProgress(t *testing.T) {
	t.Parallel()

	p := sampleProgress(time.Now())
	p.UserProfile.OrganizationName = strings.Repeat("x", MaxSize)

	_, err := NewCodec(Config{}).Encode(p)
	require.ErrorIs(t, err, onboarding.ErrProgressTooLarge)
}

func TestCodec_ReadAndExpire(t *testing.T) {
	t.Parallel()

	codec := NewCodec(Config{Secure: true})
	cookie, err := codec.Encode(sampleProgress(time.Now()))
	require.NoError(t, err)
	assert.True(t, cookie.Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, codec.Read(req))
	req.AddCookie(cookie)
	assert.Equal(t, cookie.Value, codec.Read(req))

	expired := codec.Expired()
	assert.Equal(t, DefaultName, expired.Name)
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, expired.Value)
}
