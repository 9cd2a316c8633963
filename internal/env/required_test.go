package env

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/billing-api/internal/database"
)

func validVars() map[string]string {
	return map[string]string{
		DBHost:     "db",
		DBPort:     "3306",
		DBUsername: "u",
		DBPassword: "p",
		DBName:     "app",
	}
}

func TestDatabase_AllPresent(t *testing.T) {
	cfg, err := Database(context.Background(), FromMap(validVars()), nil)
	require.NoError(t, err)

	assert.Equal(t, database.Config{
		Host:         "db",
		Port:         3306,
		Username:     "u",
		Password:     "p",
		Name:         "app",
		Transport:    database.UnverifiedTLS,
		CharacterSet: "utf8_general_ci",
	}, cfg)
}

func TestDatabase_EachMissing(t *testing.T) {
	for _, name := range Required {
		t.Run(name, func(t *testing.T) {
			vars := validVars()
			delete(vars, name)

			_, err := Database(context.Background(), FromMap(vars), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingConfig)

			var me *MissingError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, []string{name}, me.Names)
		})
	}
}

func TestDatabase_EmptyCountsAsMissing(t *testing.T) {
	vars := validVars()
	vars[DBPassword] = ""

	_, err := Database(context.Background(), FromMap(vars), nil)
	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{DBPassword}, me.Names)
}

func TestDatabase_ReportsAllMissingInOrder(t *testing.T) {
	_, err := Database(context.Background(), FromMap(map[string]string{DBPort: "3306"}), nil)

	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{DBHost, DBUsername, DBPassword, DBName}, me.Names)
}

func TestDatabase_BadPort(t *testing.T) {
	for _, port := range []string{"notanumber", "0", "70000", "33o6"} {
		t.Run(port, func(t *testing.T) {
			vars := validVars()
			vars[DBPort] = port

			_, err := Database(context.Background(), FromMap(vars), nil)
			assert.ErrorIs(t, err, ErrMissingConfig)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, DBPort, pe.Name)
			assert.Equal(t, port, pe.Value)
		})
	}
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func TestDatabase_VaultReference(t *testing.T) {
	vars := validVars()
	vars[DBPassword] = "vault:secret/app/db#password"

	cfg, err := Database(context.Background(), FromMap(vars),
		fakeResolver{"secret/app/db#password": "s3cr3t"})
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Password)
}

func TestDatabase_VaultReferenceWithoutResolver(t *testing.T) {
	vars := validVars()
	vars[DBPassword] = "vault:secret/app/db#password"

	_, err := Database(context.Background(), FromMap(vars), nil)
	assert.ErrorIs(t, err, ErrSecret)
}

func TestDatabase_FirstFailingReferenceInOrder(t *testing.T) {
	vars := validVars()
	vars[DBUsername] = "vault:secret/app/db#user"
	vars[DBPassword] = "vault:secret/app/db#password"
	vars[DBName] = "vault:secret/app/db#name"

	for i := 0; i < 20; i++ {
		_, err := Database(context.Background(), FromMap(vars), fakeResolver{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), DBUsername+":")
	}
}

func TestMailKey(t *testing.T) {
	ctx := context.Background()

	_, ok, err := MailKey(ctx, FromMap(validVars()), nil)
	require.NoError(t, err)
	assert.False(t, ok, "unset MAILGUN must disable mail")

	_, ok, err = MailKey(ctx, FromMap(map[string]string{Mailgun: ""}), nil)
	require.NoError(t, err)
	assert.False(t, ok, "empty MAILGUN must disable mail")

	key, ok, err := MailKey(ctx, FromMap(map[string]string{Mailgun: "key-123"}), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "key-123", key)
}
