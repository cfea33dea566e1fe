package webapi

import (
	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// domJS is the synthetic document/window pair. It carries just enough
// surface for layout libraries to inspect the environment at load time:
// element factories with attribute and style storage, tree mutation
// methods that return their argument, and selectors that find nothing.
// Re-evaluating it is a no-op once document exists.
const domJS = `
(function() {
	if (typeof globalThis.document !== 'undefined') return;

	function noop() {}
	function ret(child) { return child; }

	function makeElement(tag, ns) {
		var attrs = {};
		var el = {
			nodeType: 1,
			tagName: String(tag).toUpperCase(),
			localName: String(tag).toLowerCase(),
			namespaceURI: ns || 'http://www.w3.org/1999/xhtml',
			style: {
				setProperty: function(k, v) { this[k] = String(v); },
				getPropertyValue: function(k) { return this[k] || ''; },
				removeProperty: function(k) { delete this[k]; }
			},
			attributes: attrs,
			childNodes: [],
			children: [],
			innerHTML: '',
			textContent: '',
			id: '',
			className: '',
			setAttribute: function(name, value) {
				attrs[name] = String(value);
				if (name === 'id') this.id = String(value);
				if (name === 'class') this.className = String(value);
			},
			getAttribute: function(name) {
				return Object.prototype.hasOwnProperty.call(attrs, name) ? attrs[name] : null;
			},
			hasAttribute: function(name) { return Object.prototype.hasOwnProperty.call(attrs, name); },
			removeAttribute: function(name) { delete attrs[name]; },
			appendChild: ret,
			removeChild: ret,
			insertBefore: ret,
			replaceChild: ret,
			remove: noop,
			cloneNode: function() { return makeElement(tag, ns); },
			querySelector: function() { return null; },
			querySelectorAll: function() { return []; },
			getElementsByTagName: function() { return []; },
			addEventListener: noop,
			removeEventListener: noop,
			dispatchEvent: function() { return true; },
			getBoundingClientRect: function() {
				return { x: 0, y: 0, top: 0, left: 0, right: 0, bottom: 0, width: 0, height: 0 };
			},
			getBBox: function() {
				var text = String(this.textContent || '');
				return { x: 0, y: 0, width: text.length * 8, height: text ? 16 : 0 };
			},
			getComputedTextLength: function() { return String(this.textContent || '').length * 8; }
		};
		el.classList = {
			add: function(c) { el.className = (el.className ? el.className + ' ' : '') + c; },
			remove: noop,
			contains: function(c) { return (' ' + el.className + ' ').indexOf(' ' + c + ' ') >= 0; },
			toggle: noop
		};
		return el;
	}

	var doc = {
		nodeType: 9,
		createElement: function(tag) { return makeElement(tag); },
		createElementNS: function(ns, tag) { return makeElement(tag, ns); },
		createTextNode: function(text) { return { nodeValue: String(text), textContent: String(text), nodeType: 3 }; },
		createDocumentFragment: function() { return makeElement('#document-fragment'); },
		querySelector: function() { return null; },
		querySelectorAll: function() { return []; },
		getElementById: function() { return null; },
		getElementsByTagName: function() { return []; },
		addEventListener: noop,
		removeEventListener: noop,
		createEvent: function() {
			return { initEvent: noop, preventDefault: noop, stopPropagation: noop };
		},
		dispatchEvent: function() { return true; }
	};
	doc.documentElement = makeElement('html');
	doc.head = makeElement('head');
	doc.body = makeElement('body');

	var win = {
		document: doc,
		location: { href: 'http://localhost/', protocol: 'http:', host: 'localhost', hostname: 'localhost', pathname: '/', search: '', hash: '' },
		navigator: { userAgent: 'mermaid-it', language: 'en-US', platform: 'go' },
		addEventListener: noop,
		removeEventListener: noop,
		dispatchEvent: function() { return true; },
		getComputedStyle: function() {
			return { getPropertyValue: function() { return ''; } };
		},
		matchMedia: function(query) {
			return { matches: false, media: String(query), addListener: noop, removeListener: noop, addEventListener: noop, removeEventListener: noop };
		},
		innerWidth: 1024,
		innerHeight: 768,
		devicePixelRatio: 1,
		setTimeout: globalThis.setTimeout,
		clearTimeout: globalThis.clearTimeout,
		requestAnimationFrame: globalThis.requestAnimationFrame
	};
	win.window = win;
	win.self = win;

	globalThis.document = doc;
	globalThis.window = win;
	globalThis.self = globalThis.self || win;
	globalThis.navigator = globalThis.navigator || win.navigator;
	globalThis.getComputedStyle = win.getComputedStyle;
	globalThis.matchMedia = win.matchMedia;
})();
`

// SetupDOM installs the synthetic document and window. It must run after
// SetupTimers so window can carry the timer functions.
func SetupDOM(rt core.JSRuntime, _ *eventloop.EventLoop) error {
	return rt.Eval(domJS)
}

// DOMScript returns the DOM block for callers that re-inject it before
// every render.
func DOMScript() string {
	return domJS
}
