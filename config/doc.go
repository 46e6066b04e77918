// Package config loads a goShopAuth engine config from the environment with
// viper.
//
// The variable names follow the platform CLI conventions (SHOPIFY_API_KEY,
// SHOPIFY_API_SECRET, SCOPES and so on), so an app scaffolded by the platform
// tooling works without extra wiring. Anything not covered by an environment
// variable keeps its engine default and can be adjusted on the returned value.
package config
