package config

import "strings"

// SMTP 邮件推送配置；SMTP_AUTH_CODE 与 SMTP_PASSWORD 等价（QQ/163 邮箱授权码）。
type SMTP struct {
	Server   string `yaml:"smtp_server" env:"SMTP_SERVER"`
	Port     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	User     string `yaml:"smtp_user" env:"SMTP_USER"`
	Password string `yaml:"smtp_password" env:"SMTP_AUTH_CODE,SMTP_PASSWORD"`
	From     string `yaml:"smtp_from" env:"SMTP_FROM"`
	To       string `yaml:"smtp_to" env:"SMTP_TO"`
}

func (s *SMTP) normalize() {
	if s.From == "" && s.User != "" {
		s.From = s.User
	}
}

func (s *SMTP) Enabled() bool {
	srv := strings.TrimSpace(s.Server)
	from := strings.TrimSpace(s.From)
	to := strings.TrimSpace(s.To)
	return srv != "" && from != "" && to != ""
}
