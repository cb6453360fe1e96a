package config

// TokenConf is the slice of Config the JWT manager needs.
type TokenConf struct {
	AccessTokenExpiryHour int
	AccessTokenSecret     string
}

func NewTokenConf() *TokenConf {
	c := GetConfig()
	return &TokenConf{
		AccessTokenExpiryHour: c.Auth.AccessTokenExpiryHour,
		AccessTokenSecret:     c.Auth.AccessTokenSecret,
	}
}
