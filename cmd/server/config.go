package main

import "time"

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8089"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	// AdminLogin marks which account registers with the admin role.
	AdminLogin string `env:"ADMIN_LOGIN"`

	IdleLimit         time.Duration `env:"IDLE_LIMIT,default=20m"`
	BanSweepInterval  time.Duration `env:"BAN_SWEEP_INTERVAL,default=1m"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	// ForbiddenWords is a comma-separated list; empty disables moderation.
	ForbiddenWords string `env:"FORBIDDEN_WORDS"`
	ModerationMask string `env:"MODERATION_MASK,default=*"`
}
