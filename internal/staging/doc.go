// Package staging reclaims space left by interrupted downloads.
package staging
