// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package auth provides authentication primitives for LodgePost.
//
// # Domain Types
//
// Domain types (Owner, OwnerSession) should be created using their
// respective constructors:
//   - NewOwner - creates an Owner with validated email and password hash
//   - NewOwnerSession - creates an OwnerSession with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, refresh rotation, logout, session administration
//   - SessionManager - session creation, rotation, revocation, reaping
//
// Services are created with New* constructors that validate dependencies.
package auth
