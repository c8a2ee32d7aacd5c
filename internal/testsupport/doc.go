// Package testsupport holds fixtures and fakes shared by package tests.
package testsupport
