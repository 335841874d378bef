// Package domain models the Swiss federal hydrology (BAFU hydroweb) station feed.
//
// # Data Source
//
// The upstream publishes XML documents behind basic authentication. Two
// documents are polled and merged into one station set. Layout:
//
//	<locations>
//	  <station number="2009" name="Porte du Scex" water-body-name="Rhône"
//	           water-body-type="river" easting="557660" northing="133280">
//	    <parameter name="Pegel m ü. M." unit="m ü. M." type="2">
//	      <datetime>2024-05-02T10:50:00+01:00</datetime>
//	      <value warn-level-class="1">374.61</value>
//	      <previous-24h>374.58</previous-24h>
//	      <delta-24h>0.03</delta-24h>
//	      <max-24h>374.66</max-24h> ... <min-1h>374.60</min-1h>
//	    </parameter>
//	  </station>
//	</locations>
//
// # Conventions
//
// Coordinates are Swiss grid (CH1903 / LV03) metres and are converted to
// WGS84 with the swisstopo polynomial approximation.
//
// Parameter names are German free text. Only the first word is significant:
// "Wassertemperatur" is temperature, "Abfluss" is discharge and "Pegel" is
// water level. Anything else is dropped.
//
// Statistics are decimal text. "NaN" or other non-numeric text means the
// value is unavailable and is represented as an empty Value, serialized as
// JSON null.
//
// Datetimes are passed through in the feed's own format.
package domain
