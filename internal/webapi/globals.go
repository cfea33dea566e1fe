package webapi

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// globalsJS installs the small set of globals diagram libraries look for.
// structuredClone is a JSON round-trip: layout configs are plain data, and
// anything JSON cannot carry is dropped rather than cloned.
const globalsJS = `
(function() {
	globalThis.structuredClone = function(value) {
		if (value === undefined) return undefined;
		return JSON.parse(JSON.stringify(value));
	};
	globalThis.queueMicrotask = function(fn) {
		Promise.resolve().then(fn);
	};
	globalThis.performance = {
		now: function() { return __performanceNow(); },
		mark: function() {},
		measure: function() {}
	};
	globalThis.crypto = {
		randomUUID: function() { return __randomUUID(); },
		getRandomValues: function(arr) {
			var width = arr.BYTES_PER_ELEMENT || 1;
			var raw = __getRandomValues(arr.length * width);
			for (var i = 0; i < arr.length; i++) {
				var v = 0;
				for (var j = 0; j < width; j++) v = v * 256 + raw.charCodeAt(i * width + j);
				arr[i] = v;
			}
			return arr;
		}
	};
	globalThis.btoa = function(data) {
		var s = String(data);
		for (var i = 0; i < s.length; i++) {
			if (s.charCodeAt(i) > 255) throw new Error('btoa: string contains characters outside of the Latin1 range');
		}
		return __btoa(s);
	};
	globalThis.atob = function(data) { return __atob(String(data)); };
	globalThis.fetch = function(input) {
		return Promise.reject(new TypeError('fetch is not available: ' + String(input)));
	};
	if (typeof Promise.allSettled !== 'function') {
		Promise.allSettled = function(items) {
			return Promise.all(Array.from(items, function(p) {
				return Promise.resolve(p).then(
					function(value) { return { status: 'fulfilled', value: value }; },
					function(reason) { return { status: 'rejected', reason: reason }; }
				);
			}));
		};
	}
	Error.stackTraceLimit = 10;
})();
`

// maxRandomBytes matches the Web Crypto quota for one getRandomValues call.
const maxRandomBytes = 65536

// SetupGlobals registers structuredClone, queueMicrotask, performance,
// crypto, atob/btoa and a fetch that always rejects.
func SetupGlobals(rt core.JSRuntime, _ *eventloop.EventLoop) error {
	start := time.Now()
	if err := rt.RegisterFunc("__performanceNow", func() float64 {
		return float64(time.Since(start).Nanoseconds()) / 1e6
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__randomUUID", func() string {
		return uuid.NewString()
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__getRandomValues", func(n int) (string, error) {
		if n < 0 || n > maxRandomBytes {
			return "", fmt.Errorf("getRandomValues: byte length %d exceeds %d", n, maxRandomBytes)
		}
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		return latin1String(buf), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__btoa", func(s string) string {
		return base64.StdEncoding.EncodeToString(latin1Bytes(s))
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__atob", func(s string) (string, error) {
		s = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\n', '\f', '\r':
				return -1
			}
			return r
		}, s)
		raw, err := base64.StdEncoding.DecodeString(padBase64(s))
		if err != nil {
			return "", fmt.Errorf("atob: invalid base64 string")
		}
		return latin1String(raw), nil
	}); err != nil {
		return err
	}

	if err := rt.Eval(globalsJS); err != nil {
		return fmt.Errorf("evaluating globals.js: %w", err)
	}
	return nil
}

// latin1Bytes maps each code point of s (already checked to be <= 0xFF on
// the JS side) to one byte.
func latin1Bytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

// latin1String is the inverse of latin1Bytes.
func latin1String(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}
