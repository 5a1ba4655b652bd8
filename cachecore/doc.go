// Package cachecore holds the store contract shared by the root reqcache package
// and the remote drivers under driver/.
package cachecore
