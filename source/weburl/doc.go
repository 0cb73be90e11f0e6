// Package weburl validates song URLs before they are fetched.
//
// # URL Validation
//
// ValidateURL accepts only public HTTPS URLs:
//
//   - Requires HTTPS scheme
//   - Blocks localhost variants (localhost, *.localhost)
//   - Blocks local domains (.local, .internal)
//   - Blocks private IP literals
//
// Host names are only checked by name here. The fetcher resolves them and
// checks every dialed address with IsPrivateIP, which also covers DNS
// answers pointing into the local network.
//
// # IP Address Handling
//
// IsPrivateIP reports private and reserved addresses:
//
//   - IPv4 private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - IPv4 loopback (127.0.0.0/8) and unspecified (0.0.0.0)
//   - IPv4 link-local (169.254.0.0/16)
//   - CGNAT range (100.64.0.0/10)
//   - IPv6 loopback (::1), unique local (fc00::/7) and link-local (fe80::/10)
//   - IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
//
// # Usage
//
//	import "github.com/c360studio/songbook/source/weburl"
//
//	if weburl.IsURL(arg) {
//	    if err := weburl.ValidateURL(arg); err != nil {
//	        return err
//	    }
//	}
package weburl
