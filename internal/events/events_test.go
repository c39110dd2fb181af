package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegistrationNew(t *testing.T) {
	body := []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10}`)

	e, err := DecodeRegistrationNew(body)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.RegistrationID)
	assert.Equal(t, int64(1), e.UserID)
	assert.Equal(t, "a@x.com", e.UserEmail)
	assert.Equal(t, int64(10), e.CourseID)
}

func TestDecodeRegistrationNewRejectsUnknownFields(t *testing.T) {
	body := []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10,"extra":true}`)

	_, err := DecodeRegistrationNew(body)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestDecodeRegistrationNewRejectsMissingFields(t *testing.T) {
	tests := map[string]string{
		"no registration_id": `{"user_id":1,"user_email":"a@x.com","course_id":10}`,
		"no user_id":         `{"registration_id":1,"user_email":"a@x.com","course_id":10}`,
		"no user_email":      `{"registration_id":1,"user_id":1,"course_id":10}`,
		"no course_id":       `{"registration_id":1,"user_id":1,"user_email":"a@x.com"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRegistrationNew([]byte(body))
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestDecodeRegistrationNewRejectsGarbage(t *testing.T) {
	_, err := DecodeRegistrationNew([]byte(`not json`))
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = DecodeRegistrationNew([]byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10} trailing`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestDecodeRegistrationPaid(t *testing.T) {
	body := []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10,"amount":49.99}`)

	e, err := DecodeRegistrationPaid(body)
	require.NoError(t, err)
	assert.Equal(t, 49.99, e.Amount)
}

func TestDecodeRegistrationPaidRejectsNonPositiveAmount(t *testing.T) {
	body := []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10,"amount":0}`)

	_, err := DecodeRegistrationPaid(body)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := RegistrationCompleted{
		RegistrationID: 7,
		UserID:         3,
		UserEmail:      "b@y.com",
		CourseID:       42,
	}

	body, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeRegistrationCompleted(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
