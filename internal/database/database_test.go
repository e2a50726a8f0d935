package database

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func validParameters() Parameters {
	return Parameters{
		Host:           "localhost",
		Port:           3306,
		User:           "root",
		Password:       "p@ss:word",
		Name:           "Mitarbeiter",
		ConnectTimeout: 5 * time.Second,
	}
}

func TestParametersValidate(t *testing.T) {
	require.NoError(t, validParameters().Validate())

	tests := []struct {
		name   string
		mutate func(p *Parameters)
	}{
		{"missing host", func(p *Parameters) { p.Host = "" }},
		{"port zero", func(p *Parameters) { p.Port = 0 }},
		{"port too large", func(p *Parameters) { p.Port = 70000 }},
		{"missing user", func(p *Parameters) { p.User = "" }},
		{"missing name", func(p *Parameters) { p.Name = "" }},
		{"name starts with digit", func(p *Parameters) { p.Name = "1employees" }},
		{"name with backtick", func(p *Parameters) { p.Name = "emp`; DROP DATABASE x; --" }},
		{"name too long", func(p *Parameters) { p.Name = strings.Repeat("a", 65) }},
		{"negative timeout", func(p *Parameters) { p.ConnectTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParameters()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParameters)
		})
	}
}

func TestParametersBootstrapDropsName(t *testing.T) {
	p := validParameters()
	b := p.Bootstrap()

	assert.Empty(t, b.Name)
	assert.Equal(t, "Mitarbeiter", p.Name, "original must be untouched")
	assert.Equal(t, p.Host, b.Host)
}

func TestParametersStringRedactsPassword(t *testing.T) {
	s := validParameters().String()

	assert.NotContains(t, s, "p@ss")
	assert.Contains(t, s, "password=****")
	assert.Contains(t, s, "database=Mitarbeiter")
}

func TestMySQLConnectionStrings(t *testing.T) {
	p := validParameters()
	d := MySQL{}

	app, err := mysql.ParseDSN(d.ApplicationDSN(p))
	require.NoError(t, err)
	assert.Equal(t, "Mitarbeiter", app.DBName)
	assert.Equal(t, "localhost:3306", app.Addr)
	assert.Equal(t, p.Password, app.Passwd)
	assert.True(t, app.ParseTime)
	assert.Equal(t, 5*time.Second, app.Timeout)

	boot, err := mysql.ParseDSN(d.BootstrapDSN(p))
	require.NoError(t, err)
	assert.Empty(t, boot.DBName)
	assert.Equal(t, app.Addr, boot.Addr)
}

func TestPostgresConnectionStrings(t *testing.T) {
	p := validParameters()
	p.Port = 5432
	d := Postgres{}

	app, err := url.Parse(d.ApplicationDSN(p))
	require.NoError(t, err)
	assert.Equal(t, "postgres", app.Scheme)
	assert.Equal(t, "/Mitarbeiter", app.Path)
	assert.Equal(t, "localhost:5432", app.Host)
	password, _ := app.User.Password()
	assert.Equal(t, p.Password, password)
	assert.Equal(t, "disable", app.Query().Get("sslmode"))
	assert.Equal(t, "5", app.Query().Get("connect_timeout"))

	boot, err := url.Parse(d.BootstrapDSN(p))
	require.NoError(t, err)
	assert.Equal(t, "/postgres", boot.Path)
}

func TestDialectStatements(t *testing.T) {
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS `Mitarbeiter` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci",
		MySQL{}.CreateDatabaseStatement("Mitarbeiter"))
	assert.Equal(t, "USE `Mitarbeiter`", MySQL{}.UseDatabaseStatement("Mitarbeiter"))

	assert.Equal(t, `CREATE DATABASE "Mitarbeiter"`, Postgres{}.CreateDatabaseStatement("Mitarbeiter"))
	assert.Empty(t, Postgres{}.UseDatabaseStatement("Mitarbeiter"))

	for _, d := range []Dialect{MySQL{}, Postgres{}} {
		assert.Contains(t, d.CreateTableStatement(), "CREATE TABLE IF NOT EXISTS employees")
	}
}

func TestNewQueryTracer(t *testing.T) {
	assert.Nil(t, NewQueryTracer(QueryTracerOptions{}))
	assert.NotNil(t, NewQueryTracer(QueryTracerOptions{NewRelic: true}))

	both := NewQueryTracer(QueryTracerOptions{NewRelic: true, QueryLogger: nopLogger()})
	assert.IsType(t, &multiTracer{}, both)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	c := &Conn{}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.closed)
	assert.Empty(t, c.DriverName())
}
