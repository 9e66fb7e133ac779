package controllers

// CookiePath scopes the refresh-token cookie to the authenticated
// portal surface so logout, refresh, and switch-account all receive it
// while the public auth endpoints never do.
const RefreshCookiePath = "/api/customer-portal"
